package runlock

import (
	"path/filepath"
	"testing"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
)

func TestAcquireRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.lock")
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("unexpected lock path: %s", first.Path())
	}

	if _, err := Acquire(path); !clierr.HasCode(err, clierr.CodeLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	second, err := Acquire(path)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	_ = second.Release()
	_ = second.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil release returned %v", err)
	}
}
