package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoCompany indicates an operation invoked without a tenant scope.
	ErrNoCompany = errors.New("no company in context")
	// ErrNoActor indicates an operation invoked without an acting user.
	ErrNoActor = errors.New("no actor in context")
)
