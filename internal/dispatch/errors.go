package dispatch

import "errors"

var (
	// ErrUnknownRepository indicates the repositoryRef does not match any
	// tracked repository. Dispatch never targets unregistered coordinates.
	ErrUnknownRepository = errors.New("dispatch: unknown repository")

	// ErrUnsupportedTaskKind indicates the task kind is not on the
	// allow-list.
	ErrUnsupportedTaskKind = errors.New("dispatch: unsupported task kind")

	// ErrMissingInput indicates a required task input is absent.
	ErrMissingInput = errors.New("dispatch: missing task input")

	// ErrTrackingPersistence indicates the queue-record write failed. The
	// remote trigger is never attempted after this: an untracked dispatch
	// could not be queried for status.
	ErrTrackingPersistence = errors.New("dispatch: failed to persist tracking record")
)
