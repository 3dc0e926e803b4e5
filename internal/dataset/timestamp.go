package dataset

import (
	"fmt"
	"strings"
	"time"
)

// layouts accepted for capture instants, most specific first. Instants
// without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a capture instant. It keeps the ISO-8601 text it was parsed
// from because file names are derived from that text, not from the
// normalized time.
type Timestamp struct {
	raw string
	t   time.Time
}

// ParseTimestamp parses an ISO-8601 instant.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{raw: s, t: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

// NewTimestamp renders t the way the capture agent does (UTC, milliseconds).
func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{raw: t.Format("2006-01-02T15:04:05.000Z07:00"), t: t}
}

// String returns the original ISO-8601 text.
func (ts Timestamp) String() string { return ts.raw }

// Time returns the parsed instant.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether ts was never set.
func (ts Timestamp) IsZero() bool { return ts.raw == "" }

// Date returns the calendar-day prefix (YYYY-MM-DD) in the instant's own zone.
func (ts Timestamp) Date() string {
	if i := strings.IndexAny(ts.raw, "T "); i > 0 {
		return ts.raw[:i]
	}
	return ts.t.Format(time.DateOnly)
}

// PathToken is the filesystem-safe rendering used in artifact names: ':'
// becomes '-' and anything from the fractional-second dot onwards is dropped.
// Captures within the same second share a token.
func (ts Timestamp) PathToken() string {
	token := strings.ReplaceAll(ts.raw, ":", "-")
	if i := strings.IndexByte(token, '.'); i >= 0 {
		token = token[:i]
	}
	return token
}

// Before orders timestamps by instant, falling back to the text for equal instants.
func (ts Timestamp) Before(other Timestamp) bool {
	if !ts.t.Equal(other.t) {
		return ts.t.Before(other.t)
	}
	return ts.raw < other.raw
}

// MarshalText implements encoding.TextMarshaler.
func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ts *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
