package docsync

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Author is a local identity able to write entries.
type Author struct {
	priv ed25519.PrivateKey
	id   AuthorID
}

// NewAuthor generates a fresh author identity.
func NewAuthor() (*Author, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate author key: %w", err)
	}
	return authorFromKey(priv), nil
}

// ID returns the author's public identifier.
func (a *Author) ID() AuthorID {
	return a.id
}

func authorFromKey(priv ed25519.PrivateKey) *Author {
	a := &Author{priv: priv}
	copy(a.id[:], priv.Public().(ed25519.PublicKey))
	return a
}

// LoadOrCreateAuthor returns the author stored at path, creating and persisting a new
// one if the file does not exist. Keys are stored as OpenSSH PEM with mode 0600.
func LoadOrCreateAuthor(path string) (*Author, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("author key path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return loadAuthor(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat author key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create author key dir: %w", err)
	}

	author, err := NewAuthor()
	if err != nil {
		return nil, err
	}

	block, err := ssh.MarshalPrivateKey(author.priv, "murmur author")
	if err != nil {
		return nil, fmt.Errorf("marshal author key: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("write author key: %w", err)
	}
	if err := pem.Encode(file, block); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("encode author key: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close author key: %w", err)
	}

	return author, nil
}

func loadAuthor(path string) (*Author, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read author key: %w", err)
	}
	key, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse author key: %w", err)
	}
	switch k := key.(type) {
	case *ed25519.PrivateKey:
		return authorFromKey(*k), nil
	case ed25519.PrivateKey:
		return authorFromKey(k), nil
	default:
		return nil, fmt.Errorf("author key at %s is %T, not ed25519", path, key)
	}
}
