// Package toolchainloader resolves a toolchain name to its parsed spec and
// container image tag from a directory of manifests, grounded on the same
// yaml-tagged-spec convention used for function manifests elsewhere in
// this codebase's lineage.
package toolchainloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jjs-dev/judge/internal/domain"
)

// Loader reads toolchain manifests from a directory: each toolchain lives
// at ${dir}/${name}/manifest.yaml plus ${dir}/${name}/image.txt.
type Loader struct {
	dir string
}

func New(dir string) *Loader {
	return &Loader{dir: dir}
}

// Resolve reads and parses the toolchain named name.
func (l *Loader) Resolve(name string) (*domain.Toolchain, error) {
	base := filepath.Join(l.dir, name)

	rawSpec, err := os.ReadFile(filepath.Join(base, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("toolchainloader: missing manifest for %s: %w", name, err)
	}
	var spec domain.ToolchainSpec
	if err := yaml.Unmarshal(rawSpec, &spec); err != nil {
		return nil, fmt.Errorf("toolchainloader: invalid manifest for %s: %w", name, err)
	}
	if spec.RunCommand.Cwd == "" {
		spec.RunCommand.Cwd = "/jjs"
	}

	rawImage, err := os.ReadFile(filepath.Join(base, "image.txt"))
	if err != nil {
		return nil, fmt.Errorf("toolchainloader: missing image file for %s: %w", name, err)
	}

	return &domain.Toolchain{
		Spec:  spec,
		Image: strings.TrimSpace(string(rawImage)),
	}, nil
}
