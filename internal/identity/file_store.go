package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-chatbot-client/internal/entity"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Id   string `yaml:"id"`
	Name string `yaml:"name"`
}

// FileStore keeps the identity in a small YAML file in the user's config directory.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, user *entity.User) error {
	data, err := yaml.Marshal(fileDocument{Id: user.Id, Name: user.Name})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileStore) Load(_ context.Context) (*entity.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode identity %s: %w", s.path, err)
	}
	// both halves are required to skip authentication
	if doc.Id == "" || doc.Name == "" {
		return nil, ErrIdentityNotFound
	}
	return &entity.User{Id: doc.Id, Name: doc.Name}, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpName, path)
}

func instanceIdPath(identityPath string) string {
	return filepath.Join(filepath.Dir(identityPath), "instance-id")
}

// LoadOrCreateInstanceId returns the UUID naming this client installation,
// generating and persisting one on first use.
func LoadOrCreateInstanceId(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id, parseErr := uuid.Parse(strings.TrimSpace(string(data))); parseErr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read instance id: %w", err)
	}

	id := uuid.NewString()
	if err := writeFileAtomic(path, []byte(id+"\n")); err != nil {
		return "", err
	}
	return id, nil
}
