package engine

import (
	"os"
	"path/filepath"
	"strings"
)

const sentinelName = ".engine"

// CheckDirectory enforces that dir is either unclaimed or already owned by
// the given engine kind, writing the sentinel file on first use. It mirrors
// the teacher's "load persisted meta, validate on subsequent opens" shape
// from WAL's Open, specialized to a single-line ownership marker.
func CheckDirectory(dir, kind string) error {
	path := filepath.Join(dir, sentinelName)

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := writeSentinel(path, kind); werr != nil {
			return FailToOpenFile(path, werr)
		}
		return nil
	}
	if err != nil {
		return OtherIOException(err)
	}

	existing := strings.TrimSpace(string(contents))
	if existing != kind {
		return ErrIllegalWorkingDirectory
	}
	return nil
}

func writeSentinel(path, kind string) error {
	if err := os.WriteFile(path, []byte(kind+"\n"), 0o644); err != nil {
		return err
	}
	return nil
}
