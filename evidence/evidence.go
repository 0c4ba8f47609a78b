// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"encoding/json"
	"time"

	"github.com/veraison/hostattest/capability"
)

// Unknown stands in for a missing machine binding or kernel hash when the
// evidence hash is computed.
const Unknown = "UNKNOWN"

// Evidence is a deterministic snapshot of the machine identity and state. It
// is an immutable value: the evidence hash is computed once by New.
type Evidence struct {
	timestamp      time.Time
	machineBinding *string
	kernelHash     *string
	dataCardAddr   *string
	sealed         *bool
	verified       *bool
	components     string
	hash           string
}

// State is the input to New
type State struct {
	MachineBinding *string
	KernelHash     *string
	DataCardAddr   *string
	Sealed         *bool
	Verified       *bool
	Components     string
}

// New builds an Evidence value and computes its hash with the supplied
// provider.
func New(p *capability.Provider, ts time.Time, s State) (*Evidence, error) {
	h, err := Hash(p, s.MachineBinding, s.KernelHash, s.Components)
	if err != nil {
		return nil, err
	}
	return &Evidence{
		timestamp:      ts,
		machineBinding: cloneString(s.MachineBinding),
		kernelHash:     cloneString(s.KernelHash),
		dataCardAddr:   cloneString(s.DataCardAddr),
		sealed:         cloneBool(s.Sealed),
		verified:       cloneBool(s.Verified),
		components:     s.Components,
		hash:           h,
	}, nil
}

// Hash returns the encoded digest of binding + kernelHash + components, with
// Unknown substituted for a missing binding or kernel hash.
func Hash(p *capability.Provider, binding, kernelHash *string, components string) (string, error) {
	return p.HashEncoded([]byte(orUnknown(binding) + orUnknown(kernelHash) + components))
}

func orUnknown(s *string) string {
	if s == nil {
		return Unknown
	}
	return *s
}

func (e *Evidence) Timestamp() time.Time { return e.timestamp }

// MachineBinding returns the binding id and whether it is known
func (e *Evidence) MachineBinding() (string, bool) { return deref(e.machineBinding) }

// KernelHash returns the boot-time kernel hash and whether it is known
func (e *Evidence) KernelHash() (string, bool) { return deref(e.kernelHash) }

func (e *Evidence) DataCardAddr() (string, bool) { return deref(e.dataCardAddr) }

func (e *Evidence) Sealed() (bool, bool) { return derefBool(e.sealed) }

func (e *Evidence) Verified() (bool, bool) { return derefBool(e.verified) }

// Components returns the sorted, comma-joined component tokens
func (e *Evidence) Components() string { return e.components }

// Hash returns the evidence hash
func (e *Evidence) Hash() string { return e.hash }

type evidenceJSON struct {
	Timestamp      time.Time `json:"timestamp"`
	MachineBinding *string   `json:"machine_binding,omitempty"`
	KernelHash     *string   `json:"kernel_hash,omitempty"`
	DataCardAddr   *string   `json:"data_card_addr,omitempty"`
	Sealed         *bool     `json:"sealed,omitempty"`
	Verified       *bool     `json:"verified,omitempty"`
	Components     string    `json:"components"`
	EvidenceHash   string    `json:"evidence_hash"`
}

// MarshalJSON renders the evidence for display; missing facts are omitted
func (e *Evidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(evidenceJSON{
		Timestamp:      e.timestamp,
		MachineBinding: e.machineBinding,
		KernelHash:     e.kernelHash,
		DataCardAddr:   e.dataCardAddr,
		Sealed:         e.sealed,
		Verified:       e.verified,
		Components:     e.components,
		EvidenceHash:   e.hash,
	})
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func derefBool(b *bool) (bool, bool) {
	if b == nil {
		return false, false
	}
	return *b, true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
