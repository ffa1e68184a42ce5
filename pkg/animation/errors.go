package animation

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNotFound is returned when an animation id is not in the library.
	ErrNotFound = errors.New("animation: not found")

	// ErrUnknownAnimation is returned when a selection names an animation
	// that is not a candidate for the marker.
	ErrUnknownAnimation = errors.New("animation: not a candidate for marker")

	// ErrNoCandidates is returned when a marker has no tagged animations.
	ErrNoCandidates = errors.New("animation: no candidates for marker")

	// ErrNoPreference is returned when resetting a marker without a stored choice.
	ErrNoPreference = errors.New("animation: no preference for marker")

	// ErrNoSource is returned by Load when no catalog source is configured.
	ErrNoSource = errors.New("animation: no catalog source")
)
