package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrBoardNotFound is returned when a board is not found
	ErrBoardNotFound = errors.New("board not found")
)
