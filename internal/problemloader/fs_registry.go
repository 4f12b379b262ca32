package problemloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jjs-dev/judge/internal/domain"
)

// manifestYAML is the on-disk shape of a problem's manifest.yaml, grounded
// on the toolchain manifest's own yaml-tagged convention (see
// internal/toolchainloader). FileRefs are written as "problem:<path>" or
// "root:<path>"; parseFileRef below treats a "root:" prefix as absolute and
// anything else (with or without a "problem:" prefix) as problem-relative.
type manifestYAML struct {
	Tests []struct {
		Path    string      `yaml:"path"`
		Correct string      `yaml:"correct"`
		Limits  domain.Limits `yaml:"limits"`
		Group   string      `yaml:"group"`
	} `yaml:"tests"`
	CheckerExe string   `yaml:"checker_exe"`
	CheckerCmd []string `yaml:"checker_cmd"`
	Valuer     struct {
		Exe        string   `yaml:"exe"`
		Args       []string `yaml:"args"`
		CurrentDir string   `yaml:"current_dir"`
	} `yaml:"valuer"`
}

func parseFileRef(s string) domain.FileRef {
	if path, ok := strings.CutPrefix(s, "root:"); ok {
		return domain.FileRef{Root: domain.FileRootAbsolute, Path: path}
	}
	path := strings.TrimPrefix(s, "problem:")
	return domain.FileRef{Root: domain.FileRootProblem, Path: path}
}

func (m manifestYAML) toDomain() domain.Manifest {
	out := domain.Manifest{
		CheckerExe: parseFileRef(m.CheckerExe),
		CheckerCmd: m.CheckerCmd,
		Valuer: domain.ValuerConfig{
			Exe:        m.Valuer.Exe,
			Args:       m.Valuer.Args,
			CurrentDir: m.Valuer.CurrentDir,
		},
	}
	for _, t := range m.Tests {
		spec := domain.TestSpec{
			Path:   parseFileRef(t.Path),
			Limits: t.Limits,
			Group:  t.Group,
		}
		if t.Correct != "" {
			ref := parseFileRef(t.Correct)
			spec.Correct = &ref
		}
		out.Tests = append(out.Tests, spec)
	}
	return out
}

// FsRegistry resolves problems from a directory tree: ${root}/${name}/ is
// copied wholesale into the assets directory and its manifest.yaml parsed.
type FsRegistry struct {
	root string
}

func NewFsRegistry(root string) *FsRegistry {
	return &FsRegistry{root: root}
}

func (r *FsRegistry) Name() string { return "fs" }

func (r *FsRegistry) GetProblem(_ context.Context, problemName, assetsDir string) (*domain.Manifest, error) {
	src := filepath.Join(r.root, problemName)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if err := copyDir(src, assetsDir); err != nil {
		return nil, fmt.Errorf("fs registry: copy %s: %w", src, err)
	}

	raw, err := os.ReadFile(filepath.Join(assetsDir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("fs registry: read manifest: %w", err)
	}
	var parsed manifestYAML
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("fs registry: parse manifest: %w", err)
	}
	manifest := parsed.toDomain()
	return &manifest, nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}
