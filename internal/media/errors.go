package media

import "errors"

// Client-facing validation reasons.
const (
	ReasonUnsupportedType = "Unsupported file type"
	ReasonFileTooLarge    = "File size exceeds the maximum limit"
	ReasonVideoTooLong    = "Video length exceeds the maximum limit"
	ReasonCannotOpenVideo = "Cannot open video file"
	ReasonCannotOpenImage = "Cannot open image file"
	ReasonImageTooSmall   = "Image dimensions are too small"
	ReasonNoFiles         = "At least one file is required"
)

// ErrProbeUnavailable is returned by a Prober that cannot read the container format.
var ErrProbeUnavailable = errors.New("video probing unavailable for this format")

var errCannotOpen = errors.New("cannot open video")

// ValidationError rejects an upload. Reason is safe to show to the client.
type ValidationError struct {
	Reason   string
	Filename string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Filename == "" {
		return e.Reason
	}
	return e.Filename + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func reject(filename, reason string, err error) error {
	return &ValidationError{Reason: reason, Filename: filename, Err: err}
}
