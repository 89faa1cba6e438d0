package media

import "time"

// Prober reports the duration of a video file on disk.
type Prober interface {
	Duration(path string) (time.Duration, error)
}
