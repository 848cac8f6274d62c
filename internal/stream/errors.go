package stream

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned by Connect for an empty target.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransportOpen is returned by Connect when the attempt cannot start at all.
	ErrTransportOpen = errors.New("failed to open connection")
	// ErrConnection annotates dial failures and unclean closes.
	ErrConnection = errors.New("connection error")
	// ErrStopped is returned by commands once Run has returned.
	ErrStopped = errors.New("stream controller stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("stream controller already running")
)
