package entity

import "errors"

var (
	ErrDuplicateUniqueID = errors.New("light with this unique_id already exists")
	ErrNotFound          = errors.New("no such light")
)
