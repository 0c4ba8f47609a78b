// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

//go:build linux && cgo

package capability

import (
	"bytes"
	"testing"

	"github.com/google/go-tpm/tpm2/transport/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulatedTPM returns a tpmDevice backed by the IBM TPM2 simulator
func simulatedTPM(t *testing.T) *tpmDevice {
	t.Helper()

	tpm, err := simulator.OpenSimulator()
	if err != nil {
		t.Skipf("TPM simulator unavailable: %v", err)
	}
	d := &tpmDevice{path: "simulator", tpm: tpm}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestTPMDevice_Hash_matches_software(t *testing.T) {
	d := simulatedTPM(t)

	// up to 1024 bytes take a single TPM2_Hash, larger inputs the hash sequence
	for _, n := range []int{0, 1, 1024, 1025, 2048, 5000} {
		data := bytes.Repeat([]byte{0xa5}, n)
		for i := range data {
			data[i] ^= byte(i)
		}

		want, err := softwareDevice{}.Hash(data)
		require.NoError(t, err)

		got, err := d.Hash(data)
		require.NoError(t, err, "%d bytes", n)
		assert.Equal(t, want, got, "%d bytes", n)
	}
}

func TestTPMDevice_Random(t *testing.T) {
	d := simulatedTPM(t)

	// more than one TPM2_GetRandom round
	r, err := d.Random(100)
	require.NoError(t, err)
	assert.Len(t, r, 100)

	r, err = d.Random(1)
	require.NoError(t, err)
	assert.Len(t, r, 1)
}

func TestTPMDevice_bound_at_standard(t *testing.T) {
	d := simulatedTPM(t)

	p, err := Initialize(func() (Device, error) { return d, nil })
	require.NoError(t, err)
	assert.Equal(t, TierStandard, p.Tier())
	assert.Equal(t, "tpm:simulator", p.DeviceName())

	s, err := p.HashEncoded([]byte("kernel image"))
	require.NoError(t, err)
	assert.NotEmpty(t, s)

	r, err := p.RandomBytes(64)
	require.NoError(t, err)
	assert.False(t, r.Weak)
}

func TestTPMProbe_absent(t *testing.T) {
	_, err := TPMProbe("/nonexistent/tpmrm0")()
	assert.ErrorIs(t, err, ErrDeviceAbsent)
}
