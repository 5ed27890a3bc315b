package ipupdate

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultRecordTTL is applied when no TTL is configured for a hostname,
// its zone, or globally. Route 53 requires a TTL on every upsert.
const DefaultRecordTTL TTL = 300

// TTL is a DNS record time-to-live in seconds. It is always positive.
type TTL int64

// NewTTL validates seconds as a TTL.
func NewTTL(seconds int64) (TTL, error) {
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid TTL: %d (must be a positive integer)", seconds)
	}
	return TTL(seconds), nil
}

// ParseTTL parses a decimal TTL string.
func ParseTTL(s string) (TTL, error) {
	seconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL: %q", s)
	}
	return NewTTL(seconds)
}

func (t TTL) Seconds() int64 { return int64(t) }
func (t TTL) String() string { return strconv.FormatInt(int64(t), 10) }

// UnmarshalTOML implements toml.Unmarshaler.
func (t *TTL) UnmarshalTOML(v any) error {
	seconds, ok := v.(int64)
	if !ok {
		return fmt.Errorf("invalid TTL: %v (must be a positive integer)", v)
	}
	ttl, err := NewTTL(seconds)
	if err != nil {
		return err
	}
	*t = ttl
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TTL) UnmarshalYAML(node *yaml.Node) error {
	var seconds int64
	if err := node.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid TTL: %w", err)
	}
	ttl, err := NewTTL(seconds)
	if err != nil {
		return err
	}
	*t = ttl
	return nil
}

// effectiveTTL walks the hostname > zone > global fallback chain.
func effectiveTTL(candidates ...*TTL) TTL {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return DefaultRecordTTL
}
