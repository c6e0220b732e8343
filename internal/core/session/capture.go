package session

import (
	"slices"
	"time"
)

// Capture is the in-progress state of one session between Start and End.
// It is owned by the caller; independent captures never share state.
type Capture struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	Images    []string  `json:"images"`
	Reserved  []string  `json:"reserved"`
	ended     bool
}

// AddImage records a capture result. Only successful captures are kept, with
// no deduplication and no check that the file exists.
func (c *Capture) AddImage(path string, ok bool) {
	if !ok || c.ended {
		return
	}
	c.Images = append(c.Images, path)
}

// ImageCount returns how many images have been captured so far
func (c *Capture) ImageCount() int {
	return len(c.Images)
}

// Active reports whether the capture can still take images and be finalized
func (c *Capture) Active() bool {
	return c != nil && !c.ended
}

// HasReservation reports whether path was handed out for this capture and has
// not been counted yet
func (c *Capture) HasReservation(path string) bool {
	if !slices.Contains(c.Reserved, path) {
		return false
	}
	return !slices.Contains(c.Images, path)
}
