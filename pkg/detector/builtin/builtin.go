// Package builtin ships the detectors Bastion registers out of the box.
//
// The rule engine treats every detector as an opaque scorer; these are the
// local, dependency-free implementations (plus a generic HTTP client for
// model-backed detectors running out of process) that make the service
// usable stand-alone.
package builtin

import (
	"fmt"

	"guardline-hq/bastion/pkg/config"
	"guardline-hq/bastion/pkg/detector"
)

// FromConfig builds a detector from its configuration entry. name is the
// plugin key the detector is being registered under; it is used for error
// reporting only.
func FromConfig(name string, cfg config.DetectorConfig) (detector.Detector, error) {
	switch cfg.Type {
	case "invisible_chars":
		return NewInvisibleChars(), nil
	case "pii":
		return NewPII(cfg.Entities), nil
	case "prompt_injection":
		return NewPromptInjection(cfg.Patterns), nil
	case "detect_code":
		return NewDetectCode(), nil
	case "remote":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("detector %q: remote detectors require an endpoint", name)
		}
		return NewRemote(cfg.Endpoint, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("detector %q: unknown type %q", name, cfg.Type)
	}
}

// BuildRegistry constructs a registry populated from the configured
// detector table.
func BuildRegistry(detectors map[string]config.DetectorConfig) (*detector.Registry, error) {
	registry := detector.NewRegistry()
	for name, dc := range detectors {
		d, err := FromConfig(name, dc)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(name, d); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
