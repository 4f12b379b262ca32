package problemloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v3"

	"github.com/jjs-dev/judge/internal/domain"
)

// mongoProblemDoc is the document shape for a problem stored in MongoDB:
// the manifest is kept as the same YAML text the filesystem registry
// parses, and Files holds every asset the manifest's FileRefs point at.
type mongoProblemDoc struct {
	Name         string            `bson:"name"`
	ManifestYAML string            `bson:"manifest_yaml"`
	Files        map[string][]byte `bson:"files"`
}

// MongoRegistry resolves problems from a MongoDB collection.
type MongoRegistry struct {
	collection *mongo.Collection
}

// NewMongoRegistry builds a registry over the given database's "problems"
// collection.
func NewMongoRegistry(db *mongo.Database) *MongoRegistry {
	return &MongoRegistry{collection: db.Collection("problems")}
}

func (r *MongoRegistry) Name() string { return "mongo" }

func (r *MongoRegistry) GetProblem(ctx context.Context, problemName, assetsDir string) (*domain.Manifest, error) {
	var doc mongoProblemDoc
	err := r.collection.FindOne(ctx, bson.M{"name": problemName}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo registry: find %s: %w", problemName, err)
	}

	for name, data := range doc.Files {
		target := filepath.Join(assetsDir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("mongo registry: create dir for %s: %w", name, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("mongo registry: write %s: %w", name, err)
		}
	}

	var parsed manifestYAML
	if err := yaml.Unmarshal([]byte(doc.ManifestYAML), &parsed); err != nil {
		return nil, fmt.Errorf("mongo registry: parse manifest: %w", err)
	}
	manifest := parsed.toDomain()
	return &manifest, nil
}
