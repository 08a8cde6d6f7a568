// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// LoadLocationOrUTC resolves an IANA zone name, falling back to UTC
func LoadLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns the current time; flows take one so tests can pin "now"
type Clock func() time.Time

// SystemClock is the production Clock
func SystemClock() time.Time {
	return time.Now()
}
