package executor

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the supplementary company metadata a report is written against.
type Profile struct {
	CompanyName   string   `yaml:"company_name" json:"company_name"`
	DataLocations []string `yaml:"data_locations" json:"data_locations"`
	UserCount     int      `yaml:"user_count" json:"user_count"`
}

// DefaultProfile is substituted whenever the profile source fails.
func DefaultProfile() Profile {
	return Profile{
		CompanyName:   "Startup Inc.",
		DataLocations: []string{"aws-uae-north-1", "gcp-dammam"},
		UserCount:     45000,
	}
}

// ProfileSource provides the company profile for stage 2.
type ProfileSource interface {
	Fetch(ctx context.Context) (Profile, error)
}

// StaticProfile always returns the same profile.
type StaticProfile Profile

// Fetch returns p.
func (p StaticProfile) Fetch(context.Context) (Profile, error) {
	out := Profile(p)
	out.DataLocations = append([]string(nil), p.DataLocations...)
	return out, nil
}

// FileProfileSource reads the profile from a YAML file on every fetch, so
// edits take effect without a restart.
type FileProfileSource struct {
	path string
}

// NewFileProfileSource creates a YAML-backed profile source.
func NewFileProfileSource(path string) *FileProfileSource {
	return &FileProfileSource{path: path}
}

// Fetch reads and validates the profile file.
func (s *FileProfileSource) Fetch(ctx context.Context) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if p.CompanyName == "" {
		return Profile{}, fmt.Errorf("profile %s: company_name is required", s.path)
	}
	return p, nil
}
