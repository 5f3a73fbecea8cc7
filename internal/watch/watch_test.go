package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTree(t *testing.T) (root string, initFile string) {
	t.Helper()
	root = t.TempDir()
	for _, dir := range []string{".git/refs/heads", ".git/refs/tags", "src/pkg"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/master\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	initFile = filepath.Join(root, "src", "pkg", "__init__.py")
	if err := os.WriteFile(initFile, []byte("__version__ = \"0.0.1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, initFile
}

func TestRelevant(t *testing.T) {
	root, initFile := newTree(t)
	w := &watcher{
		opts:   Options{Root: root},
		gitDir: filepath.Join(root, ".git"),
		refs:   filepath.Join(root, ".git", "refs"),
		files:  map[string]struct{}{initFile: {}},
	}
	tests := map[string]bool{
		filepath.Join(root, ".git", "HEAD"):                       true,
		filepath.Join(root, ".git", "packed-refs"):                true,
		filepath.Join(root, ".git", "index"):                      true,
		filepath.Join(root, ".git", "index.lock"):                 false,
		filepath.Join(root, ".git", "COMMIT_EDITMSG"):             false,
		filepath.Join(root, ".git", "refs", "heads", "beta", "1"): true,
		filepath.Join(root, ".git", "refs", "heads", "x.lock"):    false,
		initFile:                                                  true,
		filepath.Join(root, "src", "pkg", "other.py"):             false,
	}
	for path, want := range tests {
		if got := w.relevant(path); got != want {
			t.Fatalf("relevant(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	root, initFile := newTree(t)
	w := &watcher{
		opts:   Options{Root: root},
		gitDir: filepath.Join(root, ".git"),
		refs:   filepath.Join(root, ".git", "refs"),
		files:  map[string]struct{}{initFile: {}},
	}
	got := map[string]bool{}
	for _, p := range w.paths() {
		got[p] = true
	}
	for _, want := range []string{
		filepath.Join(root, ".git"),
		filepath.Join(root, ".git", "refs"),
		filepath.Join(root, ".git", "refs", "heads"),
		filepath.Join(root, ".git", "refs", "tags"),
		filepath.Join(root, "src", "pkg"),
	} {
		if !got[want] {
			t.Fatalf("expected %s to be watched, got %v", want, got)
		}
	}
}

func TestRunTriggersOnChange(t *testing.T) {
	root, initFile := newTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, Options{Root: root, Files: []string{initFile}, Delay: 20 * time.Millisecond}, func() {
			calls.Add(1)
			fired <- struct{}{}
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(initFile, []byte("__version__ = \"0.0.2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a callback after the init file changed")
	}

	if err := os.WriteFile(filepath.Join(root, ".git", "refs", "heads", "beta"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a callback after a ref changed")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunRequiresRoot(t *testing.T) {
	if err := Run(context.Background(), Options{}, func() {}); err == nil {
		t.Fatal("expected an error without root")
	}
}
