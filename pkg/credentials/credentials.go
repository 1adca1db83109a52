// Package credentials reads the access token used to authenticate the event
// stream. Tokens live in one of two scopes: a durable file that survives
// restarts ("remember me") and an in-memory session store.
package credentials

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/reddy-bhavesh/sarral-scan/pkg/constants"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Source yields the current credential. It returns errors.ErrNoCredential
// when none is stored.
type Source interface {
	Credential(ctx context.Context) (string, error)
}

// Writer stores and removes a credential.
type Writer interface {
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Store is a Source that can also be written.
type Store interface {
	Source
	Writer
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (string, error)

// Credential implements Source.
func (f SourceFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

// Normalize trims whitespace and an optional "Bearer " prefix.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, "bearer") {
		return ""
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Static returns a Source that always yields token. An empty token behaves
// as a missing credential.
func Static(token string) Source {
	return SourceFunc(func(context.Context) (string, error) {
		if t := Normalize(token); t != "" {
			return t, nil
		}
		return "", errors.ErrNoCredential
	})
}

// FileStore keeps the credential in a file readable only by its owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore at path. A leading "~/" is expanded and an
// empty path selects constants.DefaultTokenFile.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = constants.DefaultTokenFile
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: expanded}, nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Credential implements Source.
func (s *FileStore) Credential(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.ErrNoCredential
		}
		return "", errors.WrapIO("read", s.path, err)
	}
	token := Normalize(string(data))
	if token == "" {
		return "", errors.ErrNoCredential
	}
	return token, nil
}

// Save implements Writer. The file is written with owner-only permissions.
func (s *FileStore) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token = Normalize(token)
	if token == "" {
		return errors.NewValidationError("token", "", "token is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), constants.SecureDirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(s.path), err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), constants.SecureFilePermissions); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapIO("write", s.path, err)
	}
	return nil
}

// Clear implements Writer. A missing file is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", s.path, err)
	}
	return nil
}

// MemoryStore keeps the credential for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFromEnv seeds a MemoryStore from the named variable.
func NewMemoryStoreFromEnv(key string) *MemoryStore {
	if key == "" {
		key = constants.DefaultTokenEnv
	}
	return &MemoryStore{token: Normalize(os.Getenv(key))}
}

// Credential implements Source.
func (s *MemoryStore) Credential(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", errors.ErrNoCredential
	}
	return s.token, nil
}

// Save implements Writer.
func (s *MemoryStore) Save(_ context.Context, token string) error {
	token = Normalize(token)
	if token == "" {
		return errors.NewValidationError("token", "", "token is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear implements Writer.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// Chain tries each source in order and returns the first credential found.
// Errors other than ErrNoCredential stop the search.
type Chain []Source

// Credential implements Source.
func (c Chain) Credential(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		token, err := src.Credential(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.IsNoCredential(err) {
			return "", err
		}
	}
	return "", errors.ErrNoCredential
}

// ForScope picks the store a fresh login should be written to.
func ForScope(remember bool, durable, session Writer) Writer {
	if remember {
		return durable
	}
	return session
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigError("credentials", "cannot resolve home directory", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
