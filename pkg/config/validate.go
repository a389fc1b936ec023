package config

import (
	"fmt"
	"net"
	"strings"
)

// knownDetectorTypes lists the detector implementations the registry can build.
var knownDetectorTypes = map[string]bool{
	"invisible_chars":  true,
	"pii":              true,
	"prompt_injection": true,
	"detect_code":      true,
	"remote":           true,
}

// validRelations lists the relational operators the evaluator accepts.
var validRelations = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "==": true, "!=": true,
}

// Validate checks the configuration for errors and returns a combined error
// describing every problem found. A nil return means the configuration is
// usable as-is.
func Validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address cannot be empty")
	} else if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		errs = append(errs, fmt.Sprintf("server.listen_address %q is not a valid host:port", cfg.Server.ListenAddress))
	}

	// Detector validation
	for name, dc := range cfg.Detectors {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, "detector name cannot be empty")
			continue
		}
		if !knownDetectorTypes[dc.Type] {
			errs = append(errs, fmt.Sprintf("detector %q: unknown type %q", name, dc.Type))
		}
		if dc.Type == "remote" && dc.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("detector %q: remote detectors require an endpoint", name))
		}
		if dc.Timeout < 0 {
			errs = append(errs, fmt.Sprintf("detector %q: timeout cannot be negative", name))
		}
	}

	// Rules source validation
	switch cfg.Rules.Mode {
	case "none":
	case "file":
		if cfg.Rules.FilePath == "" {
			errs = append(errs, "rules.file_path is required when rules.mode is \"file\"")
		}
	case "git":
		if cfg.Rules.Git.Repository == "" {
			errs = append(errs, "rules.git.repository is required when rules.mode is \"git\"")
		}
		switch cfg.Rules.Git.Auth.Method {
		case "none", "token", "ssh":
		default:
			errs = append(errs, fmt.Sprintf("rules.git.auth.method %q is not one of none, token, ssh", cfg.Rules.Git.Auth.Method))
		}
	default:
		errs = append(errs, fmt.Sprintf("rules.mode %q is not one of file, git, none", cfg.Rules.Mode))
	}

	// Scan validation
	if cfg.Scan.RuleTimeout <= 0 {
		errs = append(errs, "scan.rule_timeout must be positive")
	}
	if cfg.Scan.ScanTimeout <= 0 {
		errs = append(errs, "scan.scan_timeout must be positive")
	}
	if cfg.Scan.Concurrency < 1 {
		errs = append(errs, "scan.concurrency must be at least 1")
	}
	if !validRelations[cfg.Scan.DefaultRelation] {
		errs = append(errs, fmt.Sprintf("scan.default_relation %q is not a supported relational operator", cfg.Scan.DefaultRelation))
	}

	// Audit validation
	if cfg.Audit.Enabled {
		if cfg.Audit.SQLite.Path == "" {
			errs = append(errs, "audit.sqlite.path cannot be empty when audit is enabled")
		}
		if cfg.Audit.Retention.Days < 0 {
			errs = append(errs, "audit.retention.days cannot be negative")
		}
		if cfg.Audit.Retention.MaxRecords < 0 {
			errs = append(errs, "audit.retention.max_records cannot be negative")
		}
	}

	// Telemetry validation
	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.level %q is not one of debug, info, warn, error", cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.format %q is not one of json, text", cfg.Telemetry.Logging.Format))
	}
	if r := cfg.Telemetry.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.tracing.sample_ratio %v must be in [0, 1]", r))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d configuration error(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
