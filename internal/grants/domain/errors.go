package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrGrantNotFound   = fmt.Errorf("grant %w", ErrNotFound)
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)

	ErrInvalidIdentity = errors.New("invalid identity")
	ErrInvalidText     = errors.New("invalid text")
	ErrInvalidInput    = errors.New("invalid input")
)
