// Package fileref resolves a domain.FileRef against either a problem's
// asset directory or the filesystem root.
package fileref

import (
	"os"
	"path/filepath"

	"github.com/jjs-dev/judge/internal/domain"
)

// Resolve returns the absolute path a FileRef names.
func Resolve(ref domain.FileRef, assetsDir string) string {
	if ref.Root == domain.FileRootAbsolute {
		return ref.Path
	}
	return filepath.Join(assetsDir, ref.Path)
}

// ReadBytes resolves ref and reads its contents.
func ReadBytes(ref domain.FileRef, assetsDir string) ([]byte, error) {
	return os.ReadFile(Resolve(ref, assetsDir))
}
