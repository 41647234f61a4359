package common

import "errors"

// Shared repository errors.
var (
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrTooManyIDs        = errors.New("too many ids in one lookup")
)
