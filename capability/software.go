// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// MinRSABits is the smallest RSA modulus GenerateKeyPair accepts
const MinRSABits = 2048

// softwareDevice is the host crypto module: SHA-256, the OS CSPRNG and
// deterministic signatures (RSA PKCS#1 v1.5 over SHA-256, or Ed25519). It is
// the last resort on machines without a discrete crypto device.
type softwareDevice struct{}

// SoftwareProbe always finds the host crypto module (TierFull)
func SoftwareProbe() Probe {
	return func() (Device, error) {
		return softwareDevice{}, nil
	}
}

func (softwareDevice) Name() string { return "software" }

func (softwareDevice) Tier() Tier { return TierFull }

func (softwareDevice) Hash(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (softwareDevice) Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (softwareDevice) Sign(data []byte, key crypto.Signer) ([]byte, error) {
	switch key.Public().(type) {
	case *rsa.PublicKey:
		digest := sha256.Sum256(data)
		return key.Sign(rand.Reader, digest[:], crypto.SHA256)
	case ed25519.PublicKey:
		return key.Sign(nil, data, crypto.Hash(0))
	default:
		return nil, fmt.Errorf("unsupported signing key type %T", key.Public())
	}
}

func (softwareDevice) GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("key size %d below minimum of %d bits", bits, MinRSABits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}
