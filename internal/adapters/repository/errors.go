package repository

import "errors"

// Sentinel kinds for lineup store errors.
var (
	ErrNotFound     = errors.New("lineup not found")
	ErrInvalidTeam  = errors.New("invalid team id")
	ErrInvalidLimit = errors.New("invalid history limit")
)
