// Package directory serves the read-only project/task lookup from a YAML file.
package directory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tickwise/timetrack/internal/core/domain"
)

type file struct {
	Projects []domain.Project `yaml:"projects"`
	Tasks    []domain.Task    `yaml:"tasks"`
}

// Static is an immutable in-memory directory.
type Static struct {
	projects []domain.Project
	byID     map[string]domain.Project
	tasks    map[string]domain.Task
}

// New builds a directory from projects and tasks. The Unassigned sentinel is
// always present and cannot be redefined.
func New(projects []domain.Project, tasks []domain.Task) (*Static, error) {
	d := &Static{
		byID:  map[string]domain.Project{domain.UnassignedProjectID: domain.UnassignedProject()},
		tasks: make(map[string]domain.Task, len(tasks)),
	}
	for _, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("directory: project %q has no id", p.Name)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate project %q", p.ID)
		}
		d.byID[p.ID] = p
		d.projects = append(d.projects, p)
	}
	for _, t := range tasks {
		if _, ok := d.byID[t.ProjectID]; !ok {
			return nil, fmt.Errorf("directory: task %q references unknown project %q", t.ID, t.ProjectID)
		}
		if _, dup := d.tasks[t.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate task %q", t.ID)
		}
		d.tasks[t.ID] = t
	}
	sort.SliceStable(d.projects, func(i, j int) bool { return d.projects[i].Name < d.projects[j].Name })
	d.projects = append([]domain.Project{domain.UnassignedProject()}, d.projects...)
	return d, nil
}

// Parse decodes a YAML directory document.
func Parse(data []byte) (*Static, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("directory: parse: %w", err)
	}
	return New(f.Projects, f.Tasks)
}

// Load reads a YAML directory file. An empty path yields a directory that
// holds only the Unassigned project.
func Load(path string) (*Static, error) {
	if path == "" {
		return New(nil, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	return Parse(data)
}

func (d *Static) Project(_ context.Context, id string) (*domain.Project, error) {
	p, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &p, nil
}

func (d *Static) Task(_ context.Context, id string) (*domain.Task, error) {
	t, ok := d.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

// Projects lists every project, Unassigned first, the rest by name.
func (d *Static) Projects(_ context.Context) ([]domain.Project, error) {
	return append([]domain.Project(nil), d.projects...), nil
}

func (d *Static) Search(_ context.Context, query string) ([]domain.Project, error) {
	return Rank(query, d.projects), nil
}
