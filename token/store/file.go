package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-admin-auth/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	sealedMagic = "ADMSEAL1"
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32
)

var _ Backend = (*FileBackend)(nil)

// FileBackend stores values as a JSON object in a single file, rewritten atomically on
// every change. The file is re-read on every Get so that several processes sharing the
// file see each other's writes. With a non-empty secret the file is sealed with
// nacl/secretbox under a scrypt-derived key.
type FileBackend struct {
	path   string
	secret []byte

	mu   sync.Mutex
	salt []byte
	key  *[keyLength]byte
}

func NewFileBackend(path, secret string) *FileBackend {
	fb := &FileBackend{path: path}
	if secret != "" {
		fb.secret = []byte(secret)
	}
	return fb
}

func (f *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileBackend) SetMany(_ context.Context, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if errors.Is(err, errors.ErrCorruptStorage) {
		current = make(map[string]string)
	} else if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return f.save(current)
}

func (f *FileBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if errors.Is(err, errors.ErrCorruptStorage) {
		// Nothing readable to keep.
		return f.remove()
	} else if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		return f.remove()
	}
	return f.save(current)
}

func (f *FileBackend) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileBackend.load] %w", err)
	}

	if bytes.HasPrefix(raw, []byte(sealedMagic)) {
		raw, err = f.open(raw)
		if err != nil {
			return nil, err
		}
	} else if f.secret != nil {
		return nil, errors.Wrapf(errors.ErrCorruptStorage, "[FileBackend.load] expected sealed file")
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptStorage, "[FileBackend.load] %s", err.Error())
	}
	return values, nil
}

func (f *FileBackend) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("[FileBackend.save] marshal: %w", err)
	}
	if f.secret != nil {
		if data, err = f.seal(data); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("[FileBackend.save] mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("[FileBackend.save] temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileBackend.save] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileBackend.save] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileBackend.save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("[FileBackend.save] rename: %w", err)
	}
	return nil
}

func (f *FileBackend) remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileBackend.remove] %w", err)
	}
	return nil
}

// Sealed layout: magic | salt | nonce | secretbox(plaintext)
func (f *FileBackend) seal(plaintext []byte) ([]byte, error) {
	if f.key == nil {
		salt := make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("[FileBackend.seal] salt: %w", err)
		}
		if err := f.deriveKey(salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("[FileBackend.seal] nonce: %w", err)
	}

	out := make([]byte, 0, len(sealedMagic)+saltLength+nonceLength+len(plaintext)+secretbox.Overhead)
	out = append(out, sealedMagic...)
	out = append(out, f.salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, f.key), nil
}

func (f *FileBackend) open(sealed []byte) ([]byte, error) {
	if f.secret == nil {
		return nil, errors.Wrapf(errors.ErrCorruptStorage, "[FileBackend.open] sealed file but no secret configured")
	}
	body := sealed[len(sealedMagic):]
	if len(body) < saltLength+nonceLength+secretbox.Overhead {
		return nil, errors.Wrapf(errors.ErrCorruptStorage, "[FileBackend.open] truncated")
	}
	salt := body[:saltLength]
	if f.key == nil || !bytes.Equal(salt, f.salt) {
		if err := f.deriveKey(salt); err != nil {
			return nil, err
		}
	}

	var nonce [nonceLength]byte
	copy(nonce[:], body[saltLength:saltLength+nonceLength])
	plaintext, ok := secretbox.Open(nil, body[saltLength+nonceLength:], &nonce, f.key)
	if !ok {
		return nil, errors.Wrapf(errors.ErrCorruptStorage, "[FileBackend.open] authentication failed")
	}
	return plaintext, nil
}

func (f *FileBackend) deriveKey(salt []byte) error {
	dk, err := scrypt.Key(f.secret, salt, 1<<15, 8, 1, keyLength)
	if err != nil {
		return fmt.Errorf("[FileBackend.deriveKey] %w", err)
	}
	var key [keyLength]byte
	copy(key[:], dk)
	f.key = &key
	f.salt = append([]byte(nil), salt...)
	return nil
}
