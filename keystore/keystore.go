// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package keystore loads and saves the attestation key pair kept at
// well-known paths on the filesystem.
package keystore

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/veraison/hostattest/capability"
)

const (
	DefaultPrivatePath = "/etc/hostattest/attest.key"
	DefaultPublicPath  = "/etc/hostattest/attest.pub"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrKeyMismatch      = errors.New("public key does not match private key")
)

// Loader hands out the attestation key pair. A pair is always loaded whole.
type Loader interface {
	LoadKeyPair() (*capability.KeyPair, error)
}

// FileStore keeps the private key as PKCS#8 (or PKCS#1) PEM and the public
// key as PKIX PEM.
type FileStore struct {
	PrivatePath string
	PublicPath  string
}

// NewFileStore returns a FileStore on the default paths
func NewFileStore() *FileStore {
	return &FileStore{
		PrivatePath: DefaultPrivatePath,
		PublicPath:  DefaultPublicPath,
	}
}

func (s FileStore) paths() (string, string) {
	priv, pub := s.PrivatePath, s.PublicPath
	if priv == "" {
		priv = DefaultPrivatePath
	}
	if pub == "" {
		pub = DefaultPublicPath
	}
	return priv, pub
}

func (s FileStore) LoadKeyPair() (*capability.KeyPair, error) {
	privPath, pubPath := s.paths()

	privBlock, err := readPEM(privPath)
	if err != nil {
		return nil, err
	}
	signer, err := parsePrivate(privBlock)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", privPath, err)
	}

	pubBlock, err := readPEM(pubPath)
	if err != nil {
		return nil, err
	}
	if pubBlock.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%s: %w: got PEM type %q", pubPath, ErrInvalidKeyFormat, pubBlock.Type)
	}
	pub, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", pubPath, ErrInvalidKeyFormat, err)
	}

	eq, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !eq.Equal(pub) {
		return nil, ErrKeyMismatch
	}

	return &capability.KeyPair{Public: pub, Private: signer}, nil
}

// Save writes kp, creating the parent directories. The private key file is
// owner-only.
func (s FileStore) Save(kp *capability.KeyPair) error {
	if kp == nil || kp.Private == nil {
		return errors.New("no key pair supplied")
	}
	privPath, pubPath := s.paths()

	privDER, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}
	pubDER, err := kp.PublicDER()
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}

	if err := writePEM(privPath, "PRIVATE KEY", privDER, 0o600); err != nil {
		return err
	}
	return writePEM(pubPath, "PUBLIC KEY", pubDER, 0o644)
}

// Exists reports whether both halves of the pair are present
func (s FileStore) Exists() bool {
	privPath, pubPath := s.paths()
	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: %w: no PEM block", path, ErrInvalidKeyFormat)
	}
	return block, nil
}

func parsePrivate(block *pem.Block) (crypto.Signer, error) {
	var (
		key any
		err error
	)
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: got PEM type %q", ErrInvalidKeyFormat, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: key of type %T cannot sign", ErrInvalidKeyFormat, key)
	}
	return signer, nil
}

func writePEM(path, typ string, der []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
