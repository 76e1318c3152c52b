package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors - fatal, surfaced before any external call
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrNoCollections      = fmt.Errorf("no collections configured")

	// Run lifecycle errors
	ErrSyncInProgress = fmt.Errorf("sync already in progress")

	// API and service errors - recovered locally during a run
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrMalformedResponse  = fmt.Errorf("malformed categorizer response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrDuplicateKey    = fmt.Errorf("duplicate collection key")
)
