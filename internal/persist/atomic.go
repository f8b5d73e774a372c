package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWrite writes a file via a temp file in the same directory
// followed by a rename, so a reader (or a restart after a crash)
// observes either the full previous file or the full new one, never a
// partial write. The temp file lives in the target's directory because
// rename is only atomic within one filesystem.
func atomicWrite(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp_"+filepath.Base(path)+"_")
	if err != nil {
		return fmt.Errorf("persist: create temp for %s: %w", path, err)
	}

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := write(tmp); err != nil {
		return fail(fmt.Errorf("persist: write %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("persist: sync %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist: close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist: rename %s: %w", path, err)
	}
	return nil
}
