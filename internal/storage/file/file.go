package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"pharmacy/internal/model"
	"sync"
)

// File persists the token pair as a small JSON document readable only by the owner.
type File struct {
	path string
	mu   sync.Mutex
}

type document struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func New(path string) *File {
	return &File{path: path}
}

// DefaultPath resolves <user config dir>/pharmacy/session.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "pharmacy", "session.json"), nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context) (model.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{Access: doc.AccessToken, Refresh: doc.RefreshToken}, nil
}

func (f *File) SaveAccess(ctx context.Context, access string) error {
	return f.update(func(d *document) { d.AccessToken = access })
}

func (f *File) SaveRefresh(ctx context.Context, refresh string) error {
	return f.update(func(d *document) { d.RefreshToken = refresh })
}

func (f *File) Clear(ctx context.Context) error {
	const op = "file.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (f *File) update(fn func(d *document)) error {
	const op = "file.update"

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	fn(&doc)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: create directory: %w", op, err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%s: rename: %w", op, err)
	}
	return nil
}

func (f *File) read() (document, error) {
	const op = "file.read"

	var doc document
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("%s: %w", op, err)
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("%s: parse %s: %w", op, f.path, err)
	}
	return doc, nil
}
