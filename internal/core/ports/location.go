package ports

import (
	"context"

	"github.com/textcast/textcast/internal/core/domain"
)

// LocationParser turns a raw inbound message into coordinates. The boolean
// reports whether the input was recognized as a location at all; a false
// result with a nil error is the "not a location" outcome the caller answers
// with guidance text. It is only meaningful when the error is nil.
type LocationParser interface {
	Parse(ctx context.Context, raw string) (domain.Coordinates, bool, error)
}

// WordsResolver converts a three-word address ("word.word.word") into
// coordinates through a remote resolution service.
type WordsResolver interface {
	Resolve(ctx context.Context, words string) (domain.Coordinates, error)
}

// ReverseGeocoder derives a human-readable place name from coordinates.
// It is best-effort: callers fall back to rendering the raw coordinates
// when it fails.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, coords domain.Coordinates) (string, error)
}
