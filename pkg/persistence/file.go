package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"gopkg.in/yaml.v3"
)

var _ ledger.CredentialPersistence = (*File)(nil)

// File mirrors credentials into a YAML file readable only by its owner.
// Every Set and Clear rewrites the file atomically.
type File struct {
	mu   sync.Mutex
	path string
}

type fileContents struct {
	Credentials map[string]string `yaml:"credentials"`
}

// NewFile returns a store backed by path. The parent directory is created
// on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns ~/.ldesk/credentials.yml.
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.CredentialsFileName), nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get returns the value for key, or "" if the file or key does not exist.
func (f *File) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", constants.ErrEmptyPersistedKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return "", err
	}

	return contents.Credentials[key], nil
}

// Set stores value under key.
func (f *File) Set(_ context.Context, key, value string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return err
	}

	contents.Credentials[key] = value

	return f.save(contents)
}

// Clear removes key.
func (f *File) Clear(_ context.Context, key string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := contents.Credentials[key]; !ok {
		return nil
	}

	delete(contents.Credentials, key)

	return f.save(contents)
}

func (f *File) load() (*fileContents, error) {
	contents := &fileContents{Credentials: make(map[string]string)}

	// path is chosen by the operator, not by remote input
	// #nosec G304
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return contents, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := yaml.Unmarshal(data, contents); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", f.path, err)
	}

	if contents.Credentials == nil {
		contents.Credentials = make(map[string]string)
	}

	return contents, nil
}

func (f *File) save(contents *fileContents) error {
	dir := filepath.Dir(f.path)

	if err := os.MkdirAll(dir, constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := yaml.Marshal(contents)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials to YAML: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary credentials file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(constants.ConfigFilePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}

	return nil
}
