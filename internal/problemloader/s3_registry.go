package problemloader

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"
	"gopkg.in/yaml.v3"

	"github.com/jjs-dev/judge/internal/domain"
)

// S3Registry resolves problems from a bucket where each problem is stored
// as "${problemName}.tar.gz", a gzipped tarball whose root contains
// manifest.yaml plus every asset file the manifest's FileRefs name.
type S3Registry struct {
	client *s3.Client
	bucket string
}

func NewS3Registry(client *s3.Client, bucket string) *S3Registry {
	return &S3Registry{client: client, bucket: bucket}
}

func (r *S3Registry) Name() string { return "s3" }

func (r *S3Registry) GetProblem(ctx context.Context, problemName, assetsDir string) (*domain.Manifest, error) {
	key := problemName + ".tar.gz"
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("s3 registry: get %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := extractTarGz(out.Body, assetsDir); err != nil {
		return nil, fmt.Errorf("s3 registry: extract %s: %w", key, err)
	}

	raw, err := os.ReadFile(filepath.Join(assetsDir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("s3 registry: read manifest: %w", err)
	}
	var parsed manifestYAML
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("s3 registry: parse manifest: %w", err)
	}
	manifest := parsed.toDomain()
	return &manifest, nil
}

// isNotFound reports whether err is an S3 "no such key" error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

func extractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	destDir, err = filepath.Abs(destDir)
	if err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, hdr.Name)
		if target != destDir && !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
			return fmt.Errorf("s3 registry: tar entry %q escapes destination", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}
