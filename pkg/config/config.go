package config

import "time"

// Config is the root configuration structure for Bastion.
// It contains all configuration sections for the HTTP server, the detector
// registry, the default ruleset source, scan execution, audit storage, and
// telemetry settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Detectors declares the named detectors registered at startup.
	// Keys are the plugin keys rules resolve against (matched
	// case-insensitively at request time).
	Detectors map[string]DetectorConfig `yaml:"detectors"`

	// Rules contains configuration for the default ruleset used by /scan
	// requests that carry no inline rules, including source location and
	// watch mode.
	Rules RulesConfig `yaml:"rules"`

	// Scan contains configuration for scan execution including per-rule
	// timeouts and the optional bounded-concurrency mode.
	Scan ScanConfig `yaml:"scan"`

	// Audit contains configuration for scan verdict recording including
	// the SQLite backend and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8642", "0.0.0.0:8642").
	// Default: "127.0.0.1:8642"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// DetectorConfig declares a single named detector.
type DetectorConfig struct {
	// Type selects the detector implementation. One of:
	// "invisible_chars", "pii", "prompt_injection", "detect_code", "remote".
	Type string `yaml:"type"`

	// Endpoint is the URL a "remote" detector posts inputs to.
	// Required when Type is "remote", ignored otherwise.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds a single remote detector call. A scan-level rule
	// timeout still applies on top of this.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Patterns is the pattern list for "prompt_injection" detectors.
	// Matched case-insensitively as literal substrings.
	Patterns []string `yaml:"patterns"`

	// Entities restricts a "pii" detector to the listed entity types
	// (email, phone, ssn, credit_card, ip_address). Empty means all.
	Entities []string `yaml:"entities"`

	// Options carries detector-specific settings passed through verbatim.
	// The detector decodes what it understands; unknown keys are ignored.
	Options map[string]interface{} `yaml:"options"`
}

// RulesConfig contains configuration for the default ruleset source.
type RulesConfig struct {
	// Mode selects the ruleset source: "file", "git", or "none".
	// Default: "none"
	Mode string `yaml:"mode"`

	// FilePath is the ruleset file or directory for "file" mode.
	FilePath string `yaml:"file_path"`

	// Watch enables hot reloading of file-based rulesets.
	// Default: false
	Watch bool `yaml:"watch"`

	// Git configures the "git" ruleset source.
	Git GitRulesConfig `yaml:"git"`

	// Validation configures ruleset schema validation.
	Validation ValidationConfig `yaml:"validation"`
}

// GitRulesConfig contains configuration for loading rulesets from a Git repository.
type GitRulesConfig struct {
	// Repository is the clone URL (https or ssh).
	Repository string `yaml:"repository"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the subdirectory within the repository containing ruleset files.
	// Empty means the repository root.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned locally.
	// Default: a directory under os.TempDir().
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often the remote is polled for changes.
	// Default: 60s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds a single clone or pull operation.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains Git authentication settings.
type GitAuthConfig struct {
	// Method is the auth method: "none", "token", or "ssh".
	// Default: "none"
	Method string `yaml:"method"`

	// Token is the access token for "token" auth. May also be supplied via
	// the BASTION_RULES_GIT_TOKEN environment variable.
	Token string `yaml:"token"`

	// Username is the username for "token" auth against providers that
	// require one (e.g., GitHub uses "git").
	Username string `yaml:"username"`

	// SSHKeyPath is the private key path for "ssh" auth.
	SSHKeyPath string `yaml:"ssh_key_path"`
}

// ValidationConfig contains ruleset validation settings.
type ValidationConfig struct {
	// Enabled controls whether loaded rulesets are validated against the
	// embedded JSON schema before being installed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Strict rejects ruleset documents containing unknown fields.
	// Default: false
	Strict bool `yaml:"strict"`
}

// ScanConfig contains scan execution settings.
type ScanConfig struct {
	// RuleTimeout bounds a single detector invocation. A detector that
	// exceeds it is treated as failed (fail-closed).
	// Default: 10s
	RuleTimeout time.Duration `yaml:"rule_timeout"`

	// ScanTimeout bounds an entire scan across all rules.
	// Default: 60s
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// Concurrency is the maximum number of rules evaluated in parallel
	// within one scan. Values <= 1 evaluate rules sequentially in order.
	// Default: 1
	Concurrency int `yaml:"concurrency"`

	// DefaultThreshold is applied to rules that carry no threshold.
	// Default: 0.5
	DefaultThreshold float64 `yaml:"default_threshold"`

	// DefaultRelation is applied to scan rules whose config carries no
	// relation. Must be one of >, >=, <, <=, ==, !=.
	// Default: ">="
	DefaultRelation string `yaml:"default_relation"`
}

// AuditConfig contains scan audit storage settings.
type AuditConfig struct {
	// Enabled controls whether scan verdicts are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures automatic pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains audit retention settings.
type RetentionConfig struct {
	// Days is the number of days to keep scan records. Zero disables
	// age-based pruning.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords caps the total number of stored records. Zero disables
	// count-based pruning.
	// Default: 0
	MaxRecords int `yaml:"max_records"`

	// Schedule is the cron expression driving pruning runs
	// (e.g., "0 3 * * *" for daily at 3 AM). Empty disables the scheduler.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name namespace.
	// Default: "bastion"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric name subsystem. Empty by default.
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	// Enabled controls whether spans are exported. When false a noop
	// tracer is installed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the service.name resource attribute.
	// Default: "bastion"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector endpoint (host:port).
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables transport security for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces to sample, in [0, 1].
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
