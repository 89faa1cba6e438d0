package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// MP4Duration reads the movie header (moov/mvhd) of an ISO base media file and returns the
// declared duration. Files without a moov box, such as Matroska, yield ErrProbeUnavailable.
func MP4Duration(r io.ReadSeeker) (time.Duration, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	moov, moovEnd, err := findBox(r, 0, end, "moov")
	if err != nil {
		return 0, err
	}
	mvhd, _, err := findBox(r, moov, moovEnd, "mvhd")
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(mvhd, io.SeekStart); err != nil {
		return 0, err
	}

	var version [4]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return 0, fmt.Errorf("failed to read mvhd: %w", err)
	}
	var timescale uint32
	var duration uint64
	switch version[0] {
	case 0:
		var h struct{ Created, Modified, Timescale, Duration uint32 }
		if err := binary.Read(r, binary.BigEndian, &h); err != nil {
			return 0, fmt.Errorf("failed to read mvhd: %w", err)
		}
		timescale, duration = h.Timescale, uint64(h.Duration)
	case 1:
		var h struct {
			Created, Modified uint64
			Timescale         uint32
			Duration          uint64
		}
		if err := binary.Read(r, binary.BigEndian, &h); err != nil {
			return 0, fmt.Errorf("failed to read mvhd: %w", err)
		}
		timescale, duration = h.Timescale, h.Duration
	default:
		return 0, fmt.Errorf("unknown mvhd version %d", version[0])
	}
	if timescale == 0 {
		return 0, errors.New("mvhd timescale is zero")
	}
	seconds := float64(duration) / float64(timescale)
	return time.Duration(seconds * float64(time.Second)), nil
}

// findBox scans the boxes in [start, end) for typ and returns the bounds of its payload.
func findBox(r io.ReadSeeker, start, end int64, typ string) (int64, int64, error) {
	pos := start
	for pos+8 <= end {
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return 0, 0, err
		}
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, 0, ErrProbeUnavailable
		}
		size := int64(binary.BigEndian.Uint32(hdr[:4]))
		header := int64(8)
		switch size {
		case 0:
			size = end - pos
		case 1:
			var large [8]byte
			if _, err := io.ReadFull(r, large[:]); err != nil {
				return 0, 0, ErrProbeUnavailable
			}
			size = int64(binary.BigEndian.Uint64(large[:]))
			header = 16
		}
		if size < header || pos+size > end {
			return 0, 0, ErrProbeUnavailable
		}
		if string(hdr[4:]) == typ {
			return pos + header, pos + size, nil
		}
		pos += size
	}
	return 0, 0, ErrProbeUnavailable
}

// MP4Prober probes ISO base media files (mp4, mov, m4v) without cgo.
type MP4Prober struct{}

// Duration implements Prober.
func (MP4Prober) Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return MP4Duration(f)
}
