package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeWritesToFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Debug: true, Dir: dir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Get(CategoryBoot).Infow("starting", "version", "test")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "maestro.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}

func TestDisabledCategoryGetsNop(t *testing.T) {
	if err := Initialize(Options{Debug: true, Categories: map[Category]bool{CategoryCache: false}}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// Must not panic and must not be the named root logger.
	Get(CategoryCache).Debugw("should vanish")
	Get(CategoryFactory).Debugw("still routed")
}
