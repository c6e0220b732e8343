package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Session is one finalized photo-capture session record
type Session struct {
	SessionID  string // "S" + sequence number, immutable once assigned
	Name       string // Patient name
	Age        int    // Patient age, 0 when the input was unparseable
	Timestamp  int64  // Finalize time, epoch milliseconds
	ImageCount int    // Images captured when the session was finalized
}

// Validate checks if the session has required fields
func (s *Session) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if s.Age < 0 {
		return errors.New("age must not be negative")
	}
	if s.ImageCount < 0 {
		return errors.New("image_count must not be negative")
	}
	return nil
}

// CreatedAt returns the finalize timestamp as a time.Time
func (s *Session) CreatedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// NextSessionID returns the identifier that follows currentCount existing records
func NextSessionID(currentCount int64) string {
	return "S" + strconv.FormatInt(currentCount+1, 10)
}

// ParseAge converts free-text age input to an integer.
// Unparseable or negative input yields 0.
func ParseAge(input string) int {
	age, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || age < 0 {
		return 0
	}
	return age
}
