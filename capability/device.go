// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"crypto"
	"crypto/x509"
	"errors"
)

// Device is the hardware boundary: the piece of firmware or silicon that
// actually runs the primitives once a tier has been selected. A Device that
// claims TierBasic only needs to hash.
type Device interface {
	Name() string
	Tier() Tier
	Hash(data []byte) ([]byte, error)
}

// RandomDevice is a Device able to produce cryptographically secure random
// bytes (TierStandard).
type RandomDevice interface {
	Device
	Random(n int) ([]byte, error)
}

// SigningDevice is a Device able to sign and mint key pairs (TierFull).
// Signatures must be deterministic over the supplied bytes.
type SigningDevice interface {
	RandomDevice
	Sign(data []byte, key crypto.Signer) ([]byte, error)
	GenerateKeyPair(bits int) (*KeyPair, error)
}

// Probe looks for one kind of device. It returns ErrDeviceAbsent when the
// hardware is not there.
type Probe func() (Device, error)

// KeyPair holds an attestation signing key
type KeyPair struct {
	Public  crypto.PublicKey
	Private crypto.Signer
}

// PublicDER returns the PKIX, ASN.1 DER encoding of the public key
func (kp *KeyPair) PublicDER() ([]byte, error) {
	if kp == nil || kp.Public == nil {
		return nil, errors.New("no public key")
	}
	return x509.MarshalPKIXPublicKey(kp.Public)
}

// effectiveTier clamps the tier a device claims to the interfaces it really
// implements.
func effectiveTier(d Device) Tier {
	t := d.Tier()
	if t > TierFull {
		t = TierFull
	}
	if t >= TierFull {
		if _, ok := d.(SigningDevice); !ok {
			t = TierStandard
		}
	}
	if t >= TierStandard {
		if _, ok := d.(RandomDevice); !ok {
			t = TierBasic
		}
	}
	return t
}

// capped hides the operations of a device above a maximum tier
type capped struct {
	Device
	max Tier
}

func (c capped) Tier() Tier {
	if t := c.Device.Tier(); t < c.max {
		return t
	}
	return c.max
}

type cappedRandom struct {
	capped
	r RandomDevice
}

func (c cappedRandom) Random(n int) ([]byte, error) { return c.r.Random(n) }

type cappedSigning struct {
	cappedRandom
	s SigningDevice
}

func (c cappedSigning) Sign(data []byte, key crypto.Signer) ([]byte, error) {
	return c.s.Sign(data, key)
}

func (c cappedSigning) GenerateKeyPair(bits int) (*KeyPair, error) {
	return c.s.GenerateKeyPair(bits)
}

func (c capped) Close() error {
	if cl, ok := c.Device.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

// Capped wraps a probe so that the device it finds never exceeds max.
func Capped(p Probe, max Tier) Probe {
	return func() (Device, error) {
		d, err := p()
		if err != nil {
			return nil, err
		}
		base := capped{Device: d, max: max}
		if max < TierStandard {
			return base, nil
		}
		r, ok := d.(RandomDevice)
		if !ok {
			return base, nil
		}
		cr := cappedRandom{capped: base, r: r}
		if max < TierFull {
			return cr, nil
		}
		s, ok := d.(SigningDevice)
		if !ok {
			return cr, nil
		}
		return cappedSigning{cappedRandom: cr, s: s}, nil
	}
}
