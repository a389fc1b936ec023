package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guardline-hq/bastion/pkg/config"
)

// Pruner enforces the audit retention policy: entries older than the
// configured age and entries beyond the record cap are deleted.
type Pruner struct {
	store  *Store
	cfg    config.RetentionConfig
	logger *slog.Logger
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(store *Store, cfg config.RetentionConfig) *Pruner {
	return &Pruner{
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "audit.pruner"),
	}
}

// Prune runs both retention phases and returns the total deleted count.
// Age-based pruning runs first so the count cap applies to what remains.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.cfg.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.Days)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned audit entries by age",
				"deleted", deleted,
				"retention_days", p.cfg.Days,
			)
		}
	}

	if p.cfg.MaxRecords > 0 {
		deleted, err := p.store.TrimTo(ctx, int64(p.cfg.MaxRecords))
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned audit entries by count",
				"deleted", deleted,
				"max_records", p.cfg.MaxRecords,
			)
		}
	}

	return total, nil
}
