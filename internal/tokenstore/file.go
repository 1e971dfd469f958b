package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// FileOption customizes a file store.
type FileOption func(*fileStore)

// WithSecret seals the file with XChaCha20-Poly1305 under a key derived from secret.
func WithSecret(secret string) FileOption {
	return func(s *fileStore) {
		if secret == "" {
			return
		}
		key := blake2b.Sum256([]byte(secret))
		s.key32 = &key
	}
}

type fileStore struct {
	mu    sync.Mutex
	path  string
	key   string
	key32 *[32]byte
}

// NewFileStore keeps the token in a JSON document at path, mode 0600.
// The document maps storage keys to values so several profiles may share a file.
func NewFileStore(path, key string, opts ...FileOption) Store {
	if key == "" {
		key = DefaultKey
	}
	s := &fileStore{path: path, key: key}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *fileStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[s.key] = token
	return s.write(entries)
}

func (s *fileStore) Get(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", false, err
	}
	token, ok := entries[s.key]
	return token, ok, nil
}

func (s *fileStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[s.key]; !ok {
		return nil
	}
	delete(entries, s.key)
	if len(entries) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}
	return s.write(entries)
}

// read returns the stored entries. A missing, unreadable-as-JSON or unsealable
// file counts as empty storage.
func (s *fileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	if s.key32 != nil {
		raw, err = s.open(raw)
		if err != nil {
			return map[string]string{}, nil
		}
	}

	entries := map[string]string{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return map[string]string{}, nil
	}
	return entries, nil
}

func (s *fileStore) write(entries map[string]string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	if s.key32 != nil {
		raw, err = s.seal(raw)
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

func (s *fileStore) seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key32[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *fileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key32[:])
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed token file too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
