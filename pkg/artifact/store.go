package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileMode = 0600

// Save writes an artifact as JSON to path atomically: the content lands in
// a temp file in the target directory and is renamed into place, so a
// concurrent reader observes either the old artifact or the new one, never
// a partial write.
func Save(path string, v any) (retErr error) {
	if path == "" {
		return errors.New("artifact path required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating artifact dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp artifact file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), fileMode); err != nil {
		return fmt.Errorf("setting artifact file mode: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing artifact to %s: %w", path, err)
	}
	return nil
}

// Load reads a JSON artifact from path into v.
func Load(path string, v any) error {
	if path == "" {
		return errors.New("artifact path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	return nil
}
