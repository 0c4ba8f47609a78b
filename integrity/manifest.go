// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"gopkg.in/yaml.v3"
)

const (
	DefaultManifestPath = "/etc/hostattest/manifest"

	// SignatureMarker delimits the entry list from its trailing signature
	SignatureMarker = "-----BEGIN PGP SIGNATURE-----"
)

// Entry is one tracked file
type Entry struct {
	Path         string `yaml:"path"`
	ExpectedHash string `yaml:"hash"`
}

// Manifest is a parsed manifest document. Data is the signed region, and
// Signature the armored signature block that followed it, if any.
type Manifest struct {
	Entries   []Entry
	Data      []byte
	Signature []byte
}

// ParseManifest splits doc at the last SignatureMarker and decodes the data
// region as a sequence of {path, hash} entries (YAML or JSON).
func ParseManifest(doc []byte) (*Manifest, error) {
	m := Manifest{Data: doc}

	if i := bytes.LastIndex(doc, []byte(SignatureMarker)); i >= 0 {
		m.Data = doc[:i]
		m.Signature = doc[i:]
	}

	if len(bytes.TrimSpace(m.Data)) == 0 {
		return nil, errors.New("empty manifest")
	}

	if err := yaml.Unmarshal(m.Data, &m.Entries); err != nil {
		return nil, fmt.Errorf("decoding manifest entries: %w", err)
	}

	for i, e := range m.Entries {
		if e.Path == "" {
			return nil, fmt.Errorf("entry %d: missing path", i)
		}
		if e.ExpectedHash == "" {
			return nil, fmt.Errorf("entry %d (%s): missing hash", i, e.Path)
		}
	}

	return &m, nil
}

// CheckSignature verifies the armored detached signature over the data
// region against keyring and returns the signer.
func (m *Manifest) CheckSignature(keyring openpgp.EntityList) (*openpgp.Entity, error) {
	if len(m.Signature) == 0 {
		return nil, errors.New("manifest is not signed")
	}

	signer, err := openpgp.CheckArmoredDetachedSignature(
		keyring,
		bytes.NewReader(m.Data),
		bytes.NewReader(m.Signature),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("manifest signature: %w", err)
	}

	return signer, nil
}

// LoadKeyring reads an armored OpenPGP public keyring
func LoadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", path, err)
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in %s", path)
	}

	return keyring, nil
}
