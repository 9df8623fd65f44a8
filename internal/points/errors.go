package points

import "errors"

var (
	// ErrUnknownPoint is returned when a name is absent from the registry.
	ErrUnknownPoint = errors.New("unknown point")

	// ErrInvalidValue is returned when a semantic value has no register
	// encoding or falls outside the point's range.
	ErrInvalidValue = errors.New("invalid value")

	// ErrNotWritable is returned when a point's access mode forbids writing.
	ErrNotWritable = errors.New("point not writable")

	// ErrUnrecognizedCode is returned when the device reports a raw code that
	// the forward mapping does not know.
	ErrUnrecognizedCode = errors.New("unrecognized register code")
)
