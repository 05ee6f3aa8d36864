package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist.
// Appointment lookups by listing are the exception: absence there is a
// normal state and surfaces as a nil record instead.
var ErrNotFound = errors.New("record not found")
