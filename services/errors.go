package services

import "errors"

// Sentinel errors returned by the domain services. Handlers map these onto
// HTTP status codes; anything else is a store failure and surfaces as 500.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrPathNotFound       = errors.New("learning path not found")
	ErrAssignmentNotFound = errors.New("path assignment not found")
	ErrAlreadyAssigned    = errors.New("path already assigned to user")
	ErrInvalidArgument    = errors.New("missing required identifier")
)
