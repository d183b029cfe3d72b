package domain

// UnassignedProjectID is the reserved project used when nothing is selected.
const UnassignedProjectID = "unassigned"

const UnassignedProjectName = "Unassigned"

// Project is read-only lookup data owned by the directory.
type Project struct {
	ID         string `json:"id" bson:"_id" yaml:"id"`
	Name       string `json:"name" bson:"name" yaml:"name"`
	ClientID   string `json:"client_id,omitempty" bson:"client_id,omitempty" yaml:"client_id"`
	ClientName string `json:"client_name,omitempty" bson:"client_name,omitempty" yaml:"client_name"`
	Billable   bool   `json:"billable" bson:"billable" yaml:"billable"`
	Color      string `json:"color,omitempty" bson:"color,omitempty" yaml:"color"`
}

// Task is scoped to exactly one project.
type Task struct {
	ID        string `json:"id" bson:"_id" yaml:"id"`
	ProjectID string `json:"project_id" bson:"project_id" yaml:"project_id"`
	Name      string `json:"name" bson:"name" yaml:"name"`
}

// UnassignedProject is the sentinel entry present in every directory.
func UnassignedProject() Project {
	return Project{ID: UnassignedProjectID, Name: UnassignedProjectName, Billable: true}
}

// ResolveProjectID maps an empty selection to the sentinel project.
func ResolveProjectID(id string) string {
	if id == "" {
		return UnassignedProjectID
	}
	return id
}
