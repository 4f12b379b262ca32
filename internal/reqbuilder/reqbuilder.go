// Package reqbuilder provides small utilities for encoding invocation
// inputs and decoding invocation outputs; it owns no state of its own.
package reqbuilder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jjs-dev/judge/internal/domain"
)

// ErrOutputNotFound is returned by ReadOutput when the named output is
// absent from the response.
var ErrOutputNotFound = errors.New("reqbuilder: output not found")

// Intern produces an inline-base64 InputSource for the given bytes.
func Intern(data []byte) domain.InputSource {
	return domain.InputSource{
		Kind:         "inline_base64",
		InlineBase64: base64.StdEncoding.EncodeToString(data),
	}
}

// InternFile reads path and interns its bytes.
func InternFile(path string) (domain.InputSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.InputSource{}, fmt.Errorf("reqbuilder: read %s: %w", path, err)
	}
	return Intern(data), nil
}

// ReadOutput finds the named output in resp and base64-decodes it.
func ReadOutput(resp *domain.InvokeResponse, name string) ([]byte, error) {
	encoded, ok := resp.OutputData[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputNotFound, name)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("reqbuilder: decode output %s: %w", name, err)
	}
	return data, nil
}

// ReadOutputString is ReadOutput for callers that want text (UTF-8 lossy,
// matching the original's handling of process stdout/stderr).
func ReadOutputString(resp *domain.InvokeResponse, name string) (string, error) {
	data, err := ReadOutput(resp, name)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
