package models

import "errors"

// ErrNotFound is returned when a pool, review, remark or batch lookup has no match
var ErrNotFound = errors.New("not found")
