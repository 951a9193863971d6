package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Task is a short text item that can be marked completed.
// There is no version field: concurrent replaces are last-writer-wins.
type Task struct {
	ID          string `json:"id"          bson:"_id"`
	Description string `json:"description" bson:"description"`
	IsCompleted bool   `json:"isCompleted" bson:"isCompleted"`
}

// NewTask creates an incomplete Task with a freshly generated ID.
// Returns ErrEmptyDescription if description is blank.
func NewTask(description string) (*Task, error) {
	task := &Task{
		ID:          uuid.New().String(),
		Description: description,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks that the Task has an ID and a non-blank description.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}

	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}

	return nil
}

// Clone returns a copy of t, so that snapshots taken for events are not
// affected by later changes to the caller's value.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}
