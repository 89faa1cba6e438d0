//go:build !gocv

package media

// NewProber returns the container parser used when built without the gocv tag.
func NewProber() Prober {
	return MP4Prober{}
}
