//go:build gocv

package media

import (
	"time"

	"gocv.io/x/gocv"
)

// NewProber returns an OpenCV-backed prober that reads any container FFmpeg can open.
func NewProber() Prober {
	return GoCVProber{}
}

// GoCVProber computes duration as frame count over frame rate.
type GoCVProber struct{}

// Duration implements Prober.
func (GoCVProber) Duration(path string) (time.Duration, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return 0, err
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return 0, errCannotOpen
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	frames := vc.Get(gocv.VideoCaptureFrameCount)
	if fps <= 0 {
		return 0, errCannotOpen
	}
	return time.Duration(frames / fps * float64(time.Second)), nil
}
