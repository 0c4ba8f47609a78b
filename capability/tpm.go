// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package capability

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxtpm"
)

// DefaultTPMPaths lists TPM character devices in order of preference: the
// kernel resource manager first, then direct access.
var DefaultTPMPaths = []string{"/dev/tpmrm0", "/dev/tpm0"}

const (
	// TPM2B_MAX_BUFFER is 1024 bytes on every PC client TPM
	tpmMaxBuffer = 1024
	// TPM2_GetRandom never returns more than a digest worth of bytes
	tpmMaxRandom = 32
)

// tpmDevice hashes and draws randomness on a TPM 2.0. Signing with the
// file-backed attestation key is not done on the TPM, so the device stops at
// TierStandard.
type tpmDevice struct {
	path string
	tpm  transport.TPMCloser
}

// TPMProbe opens the first usable TPM 2.0 device among paths (DefaultTPMPaths
// when none are given).
func TPMProbe(paths ...string) Probe {
	if len(paths) == 0 {
		paths = DefaultTPMPaths
	}
	return func() (Device, error) {
		var lastErr error
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			t, err := linuxtpm.Open(path)
			if err != nil {
				lastErr = err
				continue
			}
			d := &tpmDevice{path: path, tpm: t}
			// a device that cannot answer GetRandom is not usable
			if _, err := d.Random(1); err != nil {
				t.Close()
				lastErr = fmt.Errorf("%s: %w", path, err)
				continue
			}
			return d, nil
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrDeviceAbsent
	}
}

func (d *tpmDevice) Name() string { return "tpm:" + d.path }

func (d *tpmDevice) Tier() Tier { return TierStandard }

// Hash runs a SHA-256 hash sequence so that inputs larger than the TPM input
// buffer (e.g. kernel images) can be digested.
func (d *tpmDevice) Hash(data []byte) ([]byte, error) {
	if len(data) <= tpmMaxBuffer {
		rsp, err := tpm2.Hash{
			Data:      tpm2.TPM2BMaxBuffer{Buffer: data},
			HashAlg:   tpm2.TPMAlgSHA256,
			Hierarchy: tpm2.TPMRHNull,
		}.Execute(d.tpm)
		if err != nil {
			return nil, fmt.Errorf("TPM2_Hash: %w", err)
		}
		return rsp.OutHash.Buffer, nil
	}

	start, err := tpm2.HashSequenceStart{HashAlg: tpm2.TPMAlgSHA256}.Execute(d.tpm)
	if err != nil {
		return nil, fmt.Errorf("TPM2_HashSequenceStart: %w", err)
	}
	seq := tpm2.AuthHandle{
		Handle: start.SequenceHandle,
		Auth:   tpm2.PasswordAuth(nil),
	}

	for len(data) > tpmMaxBuffer {
		_, err := tpm2.SequenceUpdate{
			SequenceHandle: seq,
			Buffer:         tpm2.TPM2BMaxBuffer{Buffer: data[:tpmMaxBuffer]},
		}.Execute(d.tpm)
		if err != nil {
			tpm2.FlushContext{FlushHandle: start.SequenceHandle}.Execute(d.tpm)
			return nil, fmt.Errorf("TPM2_SequenceUpdate: %w", err)
		}
		data = data[tpmMaxBuffer:]
	}

	rsp, err := tpm2.SequenceComplete{
		SequenceHandle: seq,
		Buffer:         tpm2.TPM2BMaxBuffer{Buffer: data},
		Hierarchy:      tpm2.TPMRHNull,
	}.Execute(d.tpm)
	if err != nil {
		return nil, fmt.Errorf("TPM2_SequenceComplete: %w", err)
	}
	return rsp.Result.Buffer, nil
}

func (d *tpmDevice) Random(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		want := n - len(out)
		if want > tpmMaxRandom {
			want = tpmMaxRandom
		}
		rsp, err := tpm2.GetRandom{BytesRequested: uint16(want)}.Execute(d.tpm)
		if err != nil {
			return nil, fmt.Errorf("TPM2_GetRandom: %w", err)
		}
		if len(rsp.RandomBytes.Buffer) == 0 {
			return nil, errors.New("TPM2_GetRandom returned no bytes")
		}
		out = append(out, rsp.RandomBytes.Buffer...)
	}
	return out[:n], nil
}

func (d *tpmDevice) Close() error {
	return d.tpm.Close()
}
