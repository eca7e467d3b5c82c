package site

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned when the profile file does not exist.
var ErrProfileNotFound = errors.New("site profile not found")

// LoadProfile reads a YAML site profile. An empty path returns the
// built-in reference profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path) //nolint:gosec // profile path comes from the user
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, err
	}

	return ParseProfile(raw)
}

// ParseProfile decodes and validates a YAML site profile.
func ParseProfile(raw []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode site profile: %w", err)
	}
	if p.WaitlistAnchor == "" {
		p.WaitlistAnchor = "#waitlist"
	}
	if p.ConversionGoals == nil {
		p.ConversionGoals = make(map[string]Goal)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site profile: %w", err)
	}
	return &p, nil
}
