package source

import (
	"log/slog"
	"sync"
	"time"

	"guardline-hq/bastion/pkg/rules"
)

// Ruleset is a loaded, validated ruleset ready for scanning.
type Ruleset struct {
	// Name is the document's declared name, or the origin when unnamed.
	Name string

	// Specs are the raw rule entries, preserved for response labeling.
	Specs []RuleSpec

	// Rules are the converted engine rules, aligned index-for-index with
	// Specs.
	Rules []rules.Rule

	// Origin describes where the ruleset came from (file path, git commit,
	// "memory").
	Origin string

	// LoadedAt is when this ruleset was installed.
	LoadedAt time.Time
}

// Store holds the currently active default ruleset. Reads take a shared
// lock; reloads swap the whole ruleset pointer, so in-flight scans keep the
// snapshot they started with.
type Store struct {
	mu      sync.RWMutex
	current *Ruleset
	logger  *slog.Logger
}

// NewStore creates an empty ruleset store.
func NewStore() *Store {
	return &Store{
		logger: slog.Default().With("component", "rules.source.store"),
	}
}

// Swap installs a new ruleset as the active default.
func (s *Store) Swap(rs *Ruleset) {
	if rs == nil {
		return
	}
	rs.LoadedAt = time.Now()

	s.mu.Lock()
	previous := s.current
	s.current = rs
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("default ruleset replaced",
			"name", rs.Name,
			"origin", rs.Origin,
			"rule_count", len(rs.Rules),
			"previous", previous.Name,
		)
	} else {
		s.logger.Info("default ruleset installed",
			"name", rs.Name,
			"origin", rs.Origin,
			"rule_count", len(rs.Rules),
		)
	}
}

// Current returns the active ruleset. ok is false when none has been
// installed yet.
func (s *Store) Current() (rs *Ruleset, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Ready reports whether a default ruleset is installed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}
