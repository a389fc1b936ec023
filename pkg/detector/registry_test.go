package detector

import (
	"context"
	"errors"
	"testing"
)

// constDetector returns a fixed score.
func constDetector(score float64) Detector {
	return Func(func(_ context.Context, _ string, threshold float64, _ Config) (*Result, error) {
		return &Result{Score: score, CheckResult: score > threshold}, nil
	})
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("pii", constDetector(0.9)); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	d, err := r.Resolve("pii")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	res, err := d.Detect(context.Background(), "text", 0.5, nil)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if res.Score != 0.9 {
		t.Errorf("Score = %v, want 0.9", res.Score)
	}
}

func TestRegistry_CaseInsensitiveLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("Invisible_Chars", constDetector(1)); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	for _, key := range []string{"invisible_chars", "INVISIBLE_CHARS", "Invisible_Chars", "  invisible_chars "} {
		if _, err := r.Resolve(key); err != nil {
			t.Errorf("Resolve(%q) returned error: %v", key, err)
		}
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("nope")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error is %T, want *NotFoundError", err)
	}
	if nf.Key != "nope" {
		t.Errorf("NotFoundError.Key = %q, want nope", nf.Key)
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("pii", constDetector(0)); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	// Same key in a different case still collides.
	if err := r.Register("PII", constDetector(0)); err == nil {
		t.Fatal("expected error for duplicate registration, got nil")
	}
}

func TestRegistry_RejectsEmptyKeyAndNilDetector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("  ", constDetector(0)); err == nil {
		t.Error("expected error for empty key, got nil")
	}
	if err := r.Register("ok", nil); err == nil {
		t.Error("expected error for nil detector, got nil")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "Alpha", "mid"} {
		if err := r.Register(name, constDetector(0)); err != nil {
			t.Fatalf("Register(%q) returned error: %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
