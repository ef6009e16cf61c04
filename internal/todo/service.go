package todo

import (
	"context"
	"strings"

	"workbench/internal/services"
)

// TaskUpdate carries the fields of an edit. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func invalid(message string) error {
	return services.Fail(services.ErrValidation, message, nil)
}

func missingWorkspace() error {
	return services.Fail(services.ErrNotFound, MsgWorkspaceMissing, nil)
}

// Workspaces lists workspace names in insertion order.
func (s *Store) Workspaces() ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Workspaces(), nil
}

// AddWorkspace creates an empty workspace.
func (s *Store) AddWorkspace(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid(MsgWorkspaceRequired)
	}
	return s.Update(ctx, func(doc *Document) error {
		if doc.Has(name) {
			return services.Fail(services.ErrConflict, MsgWorkspaceExists, nil)
		}
		doc.addWorkspace(name)
		return nil
	})
}

// RemoveWorkspace deletes a workspace and its tasks.
func (s *Store) RemoveWorkspace(ctx context.Context, name string) error {
	return s.Update(ctx, func(doc *Document) error {
		if !doc.Has(name) {
			return missingWorkspace()
		}
		doc.removeWorkspace(name)
		return nil
	})
}

// Tasks lists the tasks of workspace.
func (s *Store) Tasks(workspace string) ([]Task, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	tasks, ok := doc.Tasks(workspace)
	if !ok {
		return nil, missingWorkspace()
	}
	return tasks, nil
}

// AddTask appends a task to workspace.
func (s *Store) AddTask(ctx context.Context, workspace, title, description string) error {
	if strings.TrimSpace(title) == "" {
		return invalid(MsgTitleRequired)
	}
	return s.Update(ctx, func(doc *Document) error {
		tasks, ok := doc.Tasks(workspace)
		if !ok {
			return missingWorkspace()
		}
		doc.setTasks(workspace, append(tasks, Task{Title: title, Description: description}))
		return nil
	})
}

// RemoveTask deletes the task at index.
func (s *Store) RemoveTask(ctx context.Context, workspace string, index int) error {
	return s.Update(ctx, func(doc *Document) error {
		tasks, ok := doc.Tasks(workspace)
		if !ok {
			return missingWorkspace()
		}
		if index < 0 || index >= len(tasks) {
			return invalid(MsgIndexOutOfRange)
		}
		doc.setTasks(workspace, append(tasks[:index], tasks[index+1:]...))
		return nil
	})
}

// EditTask changes the provided fields of the task at index.
func (s *Store) EditTask(ctx context.Context, workspace string, index int, update TaskUpdate) error {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return invalid(MsgTitleRequired)
	}
	return s.Update(ctx, func(doc *Document) error {
		tasks, ok := doc.Tasks(workspace)
		if !ok {
			return missingWorkspace()
		}
		if index < 0 || index >= len(tasks) {
			return invalid(MsgIndexOutOfRange)
		}
		if update.Title != nil {
			tasks[index].Title = *update.Title
		}
		if update.Description != nil {
			tasks[index].Description = *update.Description
		}
		doc.setTasks(workspace, tasks)
		return nil
	})
}
