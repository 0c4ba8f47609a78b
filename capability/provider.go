// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source hands out the bound Provider. Components depend on a Source rather
// than on a Provider so that binding can be deferred to first use.
type Source interface {
	Provider() (*Provider, error)
}

// Random is the result of RandomBytes. Weak is set when the bytes come from
// the non-cryptographic fallback generator and must not be used for secrets.
type Random struct {
	Bytes []byte
	Weak  bool
}

// Provider exposes the tier-gated primitives of one bound device. It is
// immutable once returned by Initialize.
type Provider struct {
	dev  Device
	tier Tier
}

// Initialize runs the probes and binds the device with the highest effective
// tier; on equal tiers the earlier probe wins. The devices not bound are
// released. If no device offers at least TierBasic, ErrNoHardware is
// returned.
func Initialize(probes ...Probe) (*Provider, error) {
	return initialize(logrus.StandardLogger(), probes)
}

func initialize(log logrus.FieldLogger, probes []Probe) (*Provider, error) {
	var best *Provider
	for i, probe := range probes {
		if probe == nil {
			continue
		}
		d, err := probe()
		if err != nil {
			if !errors.Is(err, ErrDeviceAbsent) {
				log.WithField("probe", i).Warnf("device probe failed: %v", err)
			}
			continue
		}
		t := effectiveTier(d)
		if t == TierNone {
			log.WithField("device", d.Name()).Debug("device offers no usable capability, skipping")
			closeDevice(d)
			continue
		}
		// earlier probes win ties
		if best != nil && t <= best.tier {
			log.WithFields(logrus.Fields{"device": d.Name(), "tier": t}).Debug("lower tier device, not bound")
			closeDevice(d)
			continue
		}
		if best != nil {
			closeDevice(best.dev)
		}
		best = &Provider{dev: d, tier: t}
		if t == TierFull {
			break
		}
	}
	if best == nil {
		return nil, ErrNoHardware
	}
	log.WithFields(logrus.Fields{"device": best.dev.Name(), "tier": best.tier}).Debug("bound cryptographic device")
	return best, nil
}

// Provider returns p itself, so that a bound Provider is also a Source
func (p *Provider) Provider() (*Provider, error) {
	if p.Tier() == TierNone {
		return nil, ErrNoHardware
	}
	return p, nil
}

// Tier returns the bound tier, TierNone for an unbound provider
func (p *Provider) Tier() Tier {
	if p == nil {
		return TierNone
	}
	return p.tier
}

// DeviceName returns the name of the bound device
func (p *Provider) DeviceName() string {
	if p == nil || p.dev == nil {
		return ""
	}
	return p.dev.Name()
}

func (p *Provider) require(op string, t Tier) error {
	if p.Tier() < t {
		return &UnsupportedTierError{Op: op, Required: t, Bound: p.Tier()}
	}
	return nil
}

// Hash returns the device digest of data
func (p *Provider) Hash(data []byte) ([]byte, error) {
	if err := p.require("hash", TierBasic); err != nil {
		return nil, err
	}
	return p.dev.Hash(data)
}

// Encode returns the transport text form of b (standard base64)
func (p *Provider) Encode(b []byte) (string, error) {
	if err := p.require("encode", TierBasic); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode is the inverse of Encode
func (p *Provider) Decode(s string) ([]byte, error) {
	if err := p.require("decode", TierBasic); err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return b, nil
}

// HashEncoded is Encode(Hash(data))
func (p *Provider) HashEncoded(data []byte) (string, error) {
	d, err := p.Hash(data)
	if err != nil {
		return "", err
	}
	return p.Encode(d)
}

var (
	weakMu  sync.Mutex
	weakRNG = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomBytes returns n random bytes. Below TierStandard it falls back to a
// pseudo-random generator and flags the result as Weak; below TierBasic it
// fails.
func (p *Provider) RandomBytes(n int) (Random, error) {
	if n < 0 {
		return Random{}, fmt.Errorf("negative length %d", n)
	}
	if err := p.require("random", TierBasic); err != nil {
		return Random{}, err
	}
	if p.tier < TierStandard {
		b := make([]byte, n)
		weakMu.Lock()
		weakRNG.Read(b)
		weakMu.Unlock()
		return Random{Bytes: b, Weak: true}, nil
	}
	b, err := p.dev.(RandomDevice).Random(n)
	if err != nil {
		return Random{}, fmt.Errorf("device %s: %w", p.dev.Name(), err)
	}
	return Random{Bytes: b}, nil
}

// Sign signs data with key on the bound device
func (p *Provider) Sign(data []byte, key crypto.Signer) ([]byte, error) {
	if err := p.require("sign", TierFull); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.New("no signing key supplied")
	}
	return p.dev.(SigningDevice).Sign(data, key)
}

// GenerateKeyPair mints a new signing key pair of the given size
func (p *Provider) GenerateKeyPair(bits int) (*KeyPair, error) {
	if err := p.require("generate key pair", TierFull); err != nil {
		return nil, err
	}
	return p.dev.(SigningDevice).GenerateKeyPair(bits)
}

func closeDevice(d Device) {
	if c, ok := d.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
