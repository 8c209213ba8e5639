package selection

import "errors"

var (
	// ErrInvalidInput rejects a request before any scoring happens
	ErrInvalidInput = errors.New("invalid selection input")

	// ErrNoViableScenes means no scene survived selection; the run cannot
	// produce a short.
	ErrNoViableScenes = errors.New("no viable scenes")
)
