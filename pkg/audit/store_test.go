package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"guardline-hq/bastion/pkg/config"
	"guardline-hq/bastion/pkg/detector"
	"guardline-hq/bastion/pkg/rules"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func sampleEntry(scanID string, blocked bool, createdAt time.Time) *Entry {
	score := 0.9
	return &Entry{
		ScanID:      scanID,
		RulesetName: "default",
		InputHash:   HashInput("ignore previous instructions"),
		InputLength: 28,
		Blocked:     blocked,
		Outcomes: []OutcomeRecord{
			{RuleName: "injection guard", PluginKey: "prompt_injection", Matched: blocked, Status: "matched", Score: &score, DurationMS: 12},
		},
		Duration:  34 * time.Millisecond,
		CreatedAt: createdAt,
	}
}

func TestStoreRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleEntry("scan-1", true, time.Now().UTC())
	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.GetByScanID(ctx, "scan-1")
	if err != nil {
		t.Fatalf("GetByScanID: %v", err)
	}

	if got.ScanID != want.ScanID || got.RulesetName != want.RulesetName {
		t.Errorf("entry = %+v, want %+v", got, want)
	}
	if got.InputHash != want.InputHash || got.InputLength != want.InputLength {
		t.Errorf("input fields = %q/%d, want %q/%d", got.InputHash, got.InputLength, want.InputHash, want.InputLength)
	}
	if !got.Blocked {
		t.Error("blocked flag lost")
	}
	if len(got.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(got.Outcomes))
	}
	out := got.Outcomes[0]
	if out.PluginKey != "prompt_injection" || out.Status != "matched" {
		t.Errorf("outcome = %+v", out)
	}
	if out.Score == nil || *out.Score != 0.9 {
		t.Errorf("score = %v, want 0.9", out.Score)
	}
	if got.Duration != 34*time.Millisecond {
		t.Errorf("duration = %v, want 34ms", got.Duration)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByScanID(context.Background(), "absent")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want *StorageError", err)
	}
}

func TestStoreRecentAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := sampleEntry(scanID(i), i%2 == 0, base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d entries, want 3", len(recent))
	}
	if recent[0].ScanID != "scan-4" {
		t.Errorf("newest = %q, want scan-4", recent[0].ScanID)
	}
}

func TestStoreRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -40)
	fresh := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, sampleEntry(scanID(i), false, old)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 3; i < 8; i++ {
		if err := store.Record(ctx, sampleEntry(scanID(i), false, fresh)); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("delete before cutoff", func(t *testing.T) {
		deleted, err := store.DeleteBefore(ctx, time.Now().UTC().AddDate(0, 0, -30))
		if err != nil {
			t.Fatalf("DeleteBefore: %v", err)
		}
		if deleted != 3 {
			t.Errorf("deleted = %d, want 3", deleted)
		}
	})

	t.Run("trim to cap", func(t *testing.T) {
		deleted, err := store.TrimTo(ctx, 2)
		if err != nil {
			t.Fatalf("TrimTo: %v", err)
		}
		if deleted != 3 {
			t.Errorf("deleted = %d, want 3", deleted)
		}
		count, _ := store.Count(ctx)
		if count != 2 {
			t.Errorf("count after trim = %d, want 2", count)
		}
	})
}

func TestPruner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -10)
	for i := 0; i < 4; i++ {
		if err := store.Record(ctx, sampleEntry(scanID(i), false, old)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 4; i < 10; i++ {
		if err := store.Record(ctx, sampleEntry(scanID(i), false, time.Now().UTC())); err != nil {
			t.Fatal(err)
		}
	}

	pruner := NewPruner(store, config.RetentionConfig{Days: 7, MaxRecords: 4})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	// 4 by age, then 2 more to reach the cap of 4.
	if deleted != 6 {
		t.Errorf("deleted = %d, want 6", deleted)
	}

	count, _ := store.Count(ctx)
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

func TestNewEntryFromVerdict(t *testing.T) {
	score := &detector.Result{Score: 0.7, CheckResult: true}
	verdict := &rules.Verdict{
		ScanID:  "scan-x",
		Blocked: true,
		Results: []rules.Outcome{
			{RuleName: "r1", PluginKey: "pii", Matched: true, Status: rules.StatusMatched, Inspection: score, Duration: 5 * time.Millisecond},
			{RuleName: "r2", PluginKey: "missing", Matched: true, Status: rules.StatusMatched, Err: errors.New("plugin not found")},
		},
		Duration: 20 * time.Millisecond,
	}

	entry := NewEntry(verdict, "some text", "default")

	if entry.ScanID != "scan-x" || !entry.Blocked || entry.RulesetName != "default" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.InputHash != HashInput("some text") || entry.InputLength != 9 {
		t.Errorf("input fields = %q/%d", entry.InputHash, entry.InputLength)
	}
	if len(entry.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(entry.Outcomes))
	}
	if entry.Outcomes[0].Score == nil || *entry.Outcomes[0].Score != 0.7 {
		t.Errorf("outcome score = %v", entry.Outcomes[0].Score)
	}
	if entry.Outcomes[1].Error == "" {
		t.Error("failed outcome must carry its error text")
	}
	if entry.Outcomes[1].Score != nil {
		t.Error("outcome without inspection must have nil score")
	}
}

func TestHashInput(t *testing.T) {
	if HashInput("") != "" {
		t.Error("empty input must hash to empty string")
	}
	a := HashInput("hello")
	b := HashInput("hello")
	c := HashInput("world")
	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == c {
		t.Error("different inputs must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func scanID(i int) string {
	return "scan-" + string(rune('0'+i))
}
