package timetable

import "errors"

var (
	// ErrNotFound indicates the search query matched no group or lecturer.
	ErrNotFound = errors.New("timetable: subject not found")
	// ErrProviderUnavailable indicates a transport or protocol failure while
	// talking to the timetable provider. It is distinct from an empty result:
	// callers must be able to tell "no lessons scheduled" from a failed call.
	ErrProviderUnavailable = errors.New("timetable: provider unavailable")
	// ErrEmptyQuery indicates the user supplied an empty or blank search query.
	ErrEmptyQuery = errors.New("timetable: empty query")
)
