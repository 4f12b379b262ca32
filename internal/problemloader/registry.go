package problemloader

import (
	"context"

	"github.com/jjs-dev/judge/internal/domain"
)

// Registry resolves a problem name to a manifest, materializing any needed
// asset files under assetsDir. The set of registry kinds is closed at
// compile time (Fs, Mongo, S3) but dispatch is through this interface so
// the loader itself stays agnostic to the registry flavor.
type Registry interface {
	Name() string
	GetProblem(ctx context.Context, problemName, assetsDir string) (*domain.Manifest, error)
}
