package domain

import (
	"errors"
	"time"
)

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrSlugTaken        = errors.New("slug has already been taken")
)

type Location struct {
	ID        string
	Name      string
	Slug      string
	Zip       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LocationPatch carries the fields present in an update request.
// A nil field is left unchanged.
type LocationPatch struct {
	Name *string
	Slug *string
	Zip  *string
}
