package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the file name used when no path is configured.
const DefaultFile = "session.json"

// fileLayout is the on-disk representation. Values are sealed when Salt is set.
type fileLayout struct {
	Salt   string            `json:"salt,omitempty"`
	Values map[string]string `json:"values"`
}

// FileStore persists values in a single JSON file, rewritten on every change.
// With a passphrase the values are sealed with AES-GCM before they hit the disk.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
	salt   []byte
	sealer *Sealer
}

// OpenFile loads the store at path, creating an empty one if the file does
// not exist yet. A non-empty passphrase enables sealing; a sealed file cannot
// be opened without it.
func OpenFile(path, passphrase string) (*FileStore, error) {
	if path == "" {
		path = DefaultFile
	}
	fs := &FileStore{path: path, values: make(map[string]string)}
	if err := fs.load(passphrase); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load(passphrase string) error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.initSealer(nil, passphrase)
		}
		return fmt.Errorf("read %s: %w", fs.path, err)
	}

	var layout fileLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return fmt.Errorf("decode %s: %w", fs.path, err)
	}

	if layout.Salt == "" {
		for k, v := range layout.Values {
			fs.values[k] = v
		}
		return fs.initSealer(nil, passphrase)
	}

	if passphrase == "" {
		return ErrSealed
	}
	salt, err := base64.StdEncoding.DecodeString(layout.Salt)
	if err != nil {
		return fmt.Errorf("decode salt: %w", err)
	}
	if err := fs.initSealer(salt, passphrase); err != nil {
		return err
	}
	for k, v := range layout.Values {
		plain, err := fs.sealer.Open(v)
		if err != nil {
			return fmt.Errorf("unseal %q: %w", k, err)
		}
		fs.values[k] = plain
	}
	return nil
}

func (fs *FileStore) initSealer(salt []byte, passphrase string) error {
	if passphrase == "" {
		return nil
	}
	if salt == nil {
		var err error
		if salt, err = NewSalt(); err != nil {
			return err
		}
	}
	sealer, err := NewSealer(passphrase, salt)
	if err != nil {
		return err
	}
	fs.salt = salt
	fs.sealer = sealer
	return nil
}

// save writes values as the whole store. Callers hold fs.mu.
func (fs *FileStore) save(values map[string]string) error {
	layout := fileLayout{Values: make(map[string]string, len(values))}
	for k, v := range values {
		if fs.sealer != nil {
			sealed, err := fs.sealer.Seal(v)
			if err != nil {
				return fmt.Errorf("seal %q: %w", k, err)
			}
			v = sealed
		}
		layout.Values[k] = v
	}
	if fs.sealer != nil {
		layout.Salt = base64.StdEncoding.EncodeToString(fs.salt)
	}

	data, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	// Replace atomically.
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace %s: %w", fs.path, err)
	}
	return nil
}

func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[key]
	return v, ok, nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	next := maps.Clone(fs.values)
	next[key] = value
	return fs.commit(next)
}

func (fs *FileStore) Delete(_ context.Context, keys ...string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	next := maps.Clone(fs.values)
	for _, k := range keys {
		delete(next, k)
	}
	return fs.commit(next)
}

// commit saves next and makes it current only once it is on disk.
func (fs *FileStore) commit(next map[string]string) error {
	if err := fs.save(next); err != nil {
		return err
	}
	fs.values = next
	return nil
}

// Path returns the file backing the store.
func (fs *FileStore) Path() string {
	return fs.path
}
