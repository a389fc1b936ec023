package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = "127.0.0.1:8642"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1MB

	DefaultRuleTimeout   = 10 * time.Second
	DefaultScanTimeout   = 60 * time.Second
	DefaultThresholdVal  = 0.5
	DefaultScanRelation  = ">="
	DefaultDetectorCall  = 10 * time.Second
	DefaultGitBranch     = "main"
	DefaultGitPoll       = 60 * time.Second
	DefaultGitTimeout    = 30 * time.Second
	DefaultSQLitePath    = "data/audit.db"
	DefaultRetentionDays = 30
	DefaultPruneSchedule = "0 3 * * *"
)

// ApplyDefaults fills in default values for any zero-valued configuration
// fields. It is called by LoadConfig after parsing and before validation,
// so hand-constructed Configs used in tests should call it explicitly.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Detector defaults
	for name, dc := range cfg.Detectors {
		if dc.Timeout == 0 {
			dc.Timeout = DefaultDetectorCall
		}
		if dc.Type == "" {
			// A detector declared without a type defaults to its own name,
			// so `invisible_chars: {}` just works.
			dc.Type = name
		}
		cfg.Detectors[name] = dc
	}

	// Rules source defaults
	if cfg.Rules.Mode == "" {
		cfg.Rules.Mode = "none"
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.PollInterval == 0 {
		cfg.Rules.Git.PollInterval = DefaultGitPoll
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Rules.Git.Auth.Method == "" {
		cfg.Rules.Git.Auth.Method = "none"
	}
	if !cfg.Rules.Validation.Enabled && !cfg.Rules.Validation.Strict {
		cfg.Rules.Validation.Enabled = true
	}

	// Scan defaults
	if cfg.Scan.RuleTimeout == 0 {
		cfg.Scan.RuleTimeout = DefaultRuleTimeout
	}
	if cfg.Scan.ScanTimeout == 0 {
		cfg.Scan.ScanTimeout = DefaultScanTimeout
	}
	if cfg.Scan.Concurrency == 0 {
		cfg.Scan.Concurrency = 1
	}
	if cfg.Scan.DefaultThreshold == 0 {
		cfg.Scan.DefaultThreshold = DefaultThresholdVal
	}
	if cfg.Scan.DefaultRelation == "" {
		cfg.Scan.DefaultRelation = DefaultScanRelation
	}

	// Audit defaults
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = 10
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = 5
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = 5 * time.Second
		cfg.Audit.SQLite.WALMode = true
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "bastion"
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = "bastion"
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = "localhost:4317"
		cfg.Telemetry.Tracing.Insecure = true
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = 1.0
	}
}
