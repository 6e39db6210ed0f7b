package core

import "errors"

var (
	// ErrInvalidRequest marks caller input the service refuses to act on.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSchemaValidation marks model output that does not match the requested shape.
	ErrSchemaValidation = errors.New("model output failed schema validation")
	// ErrUpstream marks a failed call to the hosted model or an image host.
	ErrUpstream = errors.New("upstream request failed")
)
