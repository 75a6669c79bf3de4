package repository

import "errors"

// ErrInvalidRecord is returned when a record fails validation before insert
var ErrInvalidRecord = errors.New("invalid record")
