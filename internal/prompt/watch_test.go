package prompt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("persona_card: \"v1 {{.model_name}}\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	watcher, err := NewWatcher(store, path)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	watcher.debounce = 10 * time.Millisecond
	reloaded := make(chan error, 4)
	watcher.OnReload = func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	if err := os.WriteFile(path, []byte("persona_card: \"v2 {{.model_name}}\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for store.Render(PersonaCard, Fields{"model_name": "m"}) != "v2 m" {
		select {
		case err := <-reloaded:
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
