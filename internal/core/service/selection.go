package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

// checkSelection enforces the project/task referential rule: a known project,
// and a task (when given) that belongs to it. The sentinel project is always
// known. It returns the resolved project so callers can read its defaults.
func checkSelection(ctx context.Context, dir ports.Directory, projectID string, taskID *string) (*domain.Project, error) {
	project, err := lookupProject(ctx, dir, projectID)
	if err != nil {
		return nil, err
	}
	if taskID == nil || *taskID == "" {
		return project, nil
	}
	if dir == nil {
		return nil, &domain.ValidationError{Field: "task_id", Reason: "unknown task"}
	}
	task, err := dir.Task(ctx, *taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, &domain.ValidationError{Field: "task_id", Reason: "unknown task"}
		}
		return nil, fmt.Errorf("lookup task: %w", err)
	}
	if task.ProjectID != projectID {
		return nil, domain.ErrTaskProjectMismatch
	}
	return project, nil
}

func lookupProject(ctx context.Context, dir ports.Directory, projectID string) (*domain.Project, error) {
	if projectID == domain.UnassignedProjectID || dir == nil {
		p := domain.UnassignedProject()
		if projectID != domain.UnassignedProjectID {
			p.ID, p.Name = projectID, projectID
		}
		return &p, nil
	}
	p, err := dir.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, &domain.ValidationError{Field: "project_id", Reason: "unknown project"}
		}
		return nil, fmt.Errorf("lookup project: %w", err)
	}
	return p, nil
}

// normalizeTask treats an empty task id as "no task".
func normalizeTask(taskID *string) *string {
	if taskID == nil || *taskID == "" {
		return nil
	}
	return taskID
}
