package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adewale/pixarr/internal/mover"
)

func quarantineFile(e *Engine, path, reason, ingestID, extra string) (string, error) {
	return mover.Quarantine(e.Config.Paths.QuarantineDir, path, reason, ingestID, extra)
}

func deleteFile(path string) error {
	return os.Remove(path)
}

func filenameOf(path string) string {
	return filepath.Base(path)
}

func fileExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
