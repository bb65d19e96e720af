package classify

import (
	"errors"
	"fmt"
)

// Domain errors for the classify package.
//
// Classification failures are soft: the caller persists the raw event and
// skips the notification path, it never rejects the webhook.
//
//	if errors.Is(err, classify.ErrUnclassified) {
//	    // persist raw, no notification
//	}
var (
	// ErrUnclassified is returned when a structurally valid payload cannot be
	// mapped to a semantic state.
	ErrUnclassified = errors.New("classify: unclassified event")

	// ErrMissingField is returned when a required raw field is absent or
	// unparseable. Wraps ErrUnclassified so a single errors.Is covers both.
	ErrMissingField = fmt.Errorf("%w: missing or unparseable field", ErrUnclassified)
)
