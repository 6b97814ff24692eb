package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the optional YAML file that tunes the gate workflow per deployment.
// Zero values leave the environment settings untouched.
//
//	exceptionReviewThreshold: 2
//	geofenceRadiusMeters: 250
//	upload:
//	  maxAttempts: 3
//	  retryDelay: 500ms
type Policy struct {
	ExceptionReviewThreshold *int    `yaml:"exceptionReviewThreshold"`
	GeofenceRadiusMeters     float64 `yaml:"geofenceRadiusMeters"`
	Upload                   struct {
		MaxAttempts int    `yaml:"maxAttempts"`
		RetryDelay  string `yaml:"retryDelay"`
	} `yaml:"upload"`
}

// LoadPolicyFile reads and parses a policy file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gate policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes policy YAML.
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse gate policy: %w", err)
	}
	if policy.Upload.RetryDelay != "" {
		if _, err := time.ParseDuration(policy.Upload.RetryDelay); err != nil {
			return nil, fmt.Errorf("parse gate policy: upload.retryDelay: %w", err)
		}
	}
	return &policy, nil
}

// Apply overlays the non-zero policy values onto cfg.
func (p *Policy) Apply(cfg *Config) {
	if p.ExceptionReviewThreshold != nil {
		cfg.ExceptionReviewThreshold = *p.ExceptionReviewThreshold
	}
	if p.GeofenceRadiusMeters > 0 {
		cfg.GeofenceRadiusMeters = p.GeofenceRadiusMeters
	}
	if p.Upload.MaxAttempts > 0 {
		cfg.UploadMaxAttempts = p.Upload.MaxAttempts
	}
	if p.Upload.RetryDelay != "" {
		cfg.UploadRetryDelay = mustDuration(p.Upload.RetryDelay)
	}
}
