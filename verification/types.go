// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"encoding/base64"
	"errors"

	"github.com/veraison/hostattest/evidence"
)

var (
	// ErrChallenge is returned when no usable challenge could be obtained
	ErrChallenge = errors.New("challenge request failed")
	// ErrTransport is returned when the submission is not accepted by the
	// transport (non-success status)
	ErrTransport = errors.New("attestation transport failed")
	// ErrProtocol is returned when the verdict cannot be understood
	ErrProtocol = errors.New("attestation protocol error")
	// ErrInvalidState is returned when a Session step is called out of order
	ErrInvalidState = errors.New("invalid session state")
)

const (
	ActionChallenge = "challenge"
	ActionAttest    = "attest"

	// NewMachineHint identifies a machine that does not know its binding yet
	NewMachineHint = "new"

	StatusAttested = "attested"

	// UnsignedSentinel is sent in place of a signature that could not be
	// produced
	UnsignedSentinel = "UNSIGNED"
)

// Challenge is a single-use freshness token issued by the verification
// service. Its freshness window is enforced by the service only.
type Challenge struct {
	Nonce       string `json:"nonce"`
	ChallengeID string `json:"challenge_id"`
}

// ChallengeRequest is the body of a challenge request
type ChallengeRequest struct {
	Action    string `json:"action"`
	MachineID string `json:"machine_id"`
}

// AttestationRequest is the body of an attestation submission
type AttestationRequest struct {
	Action         string `json:"action"`
	ChallengeID    string `json:"challenge_id"`
	Nonce          string `json:"nonce"`
	Signature      string `json:"signature"`
	PublicKey      string `json:"public_key"`
	MachineBinding string `json:"machine_binding"`
	KernelHash     string `json:"kernel_hash"`
	Components     string `json:"components"`
	Sealed         bool   `json:"sealed"`
	Verified       bool   `json:"verified"`
}

// AttestationResponse is the verdict returned by the verification service
type AttestationResponse struct {
	Status       string `json:"status"`
	SessionToken string `json:"session_token,omitempty"`
}

// Signature is either a real signature over the attestation payload or the
// explicit absence of one. Unsigned attestations are still submitted; the
// service decides whether to accept them.
type Signature struct {
	sig []byte
	pub []byte
}

// Signed wraps a signature and the DER (PKIX) encoding of the public key
// that verifies it.
func Signed(sig, pubDER []byte) Signature {
	return Signature{
		sig: append([]byte{}, sig...),
		pub: append([]byte{}, pubDER...),
	}
}

func Unsigned() Signature {
	return Signature{}
}

func (s Signature) IsSigned() bool { return s.sig != nil }

// Bytes returns the raw signature, nil when unsigned
func (s Signature) Bytes() []byte { return s.sig }

// PublicKeyDER returns the public key, nil when unsigned
func (s Signature) PublicKeyDER() []byte { return s.pub }

// Wire returns the transport encoding of the signature and of the public
// key: base64, or UnsignedSentinel and "" when unsigned.
func (s Signature) Wire() (sig, pub string) {
	if !s.IsSigned() {
		return UnsignedSentinel, ""
	}
	return base64.StdEncoding.EncodeToString(s.sig), base64.StdEncoding.EncodeToString(s.pub)
}

// Outcome is the result of one attestation attempt: Attested, Rejected or
// Failed.
type Outcome interface {
	isOutcome()
}

// Attested carries the session token issued by the service together with
// what was attested.
type Attested struct {
	SessionToken string
	Evidence     *evidence.Evidence
	Signature    Signature
}

// Rejected is a well-formed negative verdict. It is not an error.
type Rejected struct {
	Reason string
}

// Failed is an attempt that did not reach a verdict
type Failed struct {
	Err error
}

func (Attested) isOutcome() {}
func (Rejected) isOutcome() {}
func (Failed) isOutcome()   {}

func (f Failed) Error() string { return f.Err.Error() }
func (f Failed) Unwrap() error { return f.Err }

// BuildPayload returns the bytes that get signed: nonce, machine binding,
// kernel hash and components concatenated. Unlike the evidence hash, a
// missing binding or kernel hash contributes nothing.
func BuildPayload(nonce string, ev *evidence.Evidence) []byte {
	binding, _ := ev.MachineBinding()
	kernelHash, _ := ev.KernelHash()
	return []byte(nonce + binding + kernelHash + ev.Components())
}

func newAttestationRequest(ch Challenge, ev *evidence.Evidence, sig Signature) AttestationRequest {
	wireSig, wirePub := sig.Wire()

	binding, ok := ev.MachineBinding()
	if !ok {
		binding = evidence.Unknown
	}
	kernelHash, ok := ev.KernelHash()
	if !ok {
		kernelHash = evidence.Unknown
	}
	sealed, _ := ev.Sealed()
	verified, _ := ev.Verified()

	return AttestationRequest{
		Action:         ActionAttest,
		ChallengeID:    ch.ChallengeID,
		Nonce:          ch.Nonce,
		Signature:      wireSig,
		PublicKey:      wirePub,
		MachineBinding: binding,
		KernelHash:     kernelHash,
		Components:     ev.Components(),
		Sealed:         sealed,
		Verified:       verified,
	}
}
