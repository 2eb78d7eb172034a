// Package secrets supplies the credential blob an invocation materializes
// for the external task. The blob is opaque: providers hand it through
// verbatim and the runner never parses or logs it.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissing is returned when the configured secret source has no value.
// The runner fails fast on this before the task is ever launched.
var ErrMissing = errors.New("secrets: credential is missing or empty")

// Provider resolves the credential blob for one invocation. Implementations
// must return a fresh copy on every call so nothing is shared across
// invocations.
type Provider interface {
	Credential(ctx context.Context) ([]byte, error)
}

// EnvProvider reads the credential blob from a named environment variable
// of the daemon process (the host platform's secret store injects it there).
type EnvProvider struct {
	Name string
}

func (p EnvProvider) Credential(_ context.Context) ([]byte, error) {
	value := os.Getenv(p.Name)
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: env var %s", ErrMissing, p.Name)
	}
	return []byte(value), nil
}

// FileProvider reads the credential blob from a file managed outside the
// invocation lifecycle (e.g. a mounted secret).
type FileProvider struct {
	Path string
}

func (p FileProvider) Credential(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", ErrMissing, p.Path)
		}
		return nil, fmt.Errorf("secrets: reading %s: %w", p.Path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: file %s", ErrMissing, p.Path)
	}
	return data, nil
}

// StaticProvider returns a fixed blob. Used in tests to substitute a fake
// credential without touching the environment.
type StaticProvider struct {
	Blob []byte
}

func (p StaticProvider) Credential(_ context.Context) ([]byte, error) {
	if len(p.Blob) == 0 {
		return nil, ErrMissing
	}
	out := make([]byte, len(p.Blob))
	copy(out, p.Blob)
	return out, nil
}

// Mask returns a redacted rendering of a secret for logs and config dumps.
func Mask(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
