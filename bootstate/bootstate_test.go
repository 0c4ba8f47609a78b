// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package bootstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Facts_missing_file(t *testing.T) {
	s := FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")}

	f, err := s.Facts()
	require.NoError(t, err)
	assert.Equal(t, Facts{}, f)
}

func TestFileSource_Facts_partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.yaml")
	doc := `
machine_binding: MACH-1
kernel_hash: ""
sealed: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	f, err := FileSource{Path: path}.Facts()
	require.NoError(t, err)

	require.NotNil(t, f.MachineBinding)
	assert.Equal(t, "MACH-1", *f.MachineBinding)
	assert.Nil(t, f.KernelHash)
	assert.Nil(t, f.DataCardAddr)
	require.NotNil(t, f.Sealed)
	assert.True(t, *f.Sealed)
	assert.Nil(t, f.Verified)
}

func TestFileSource_Facts_malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sealed: [1, 2"), 0o600))

	_, err := FileSource{Path: path}.Facts()
	assert.ErrorContains(t, err, "decoding boot facts")
}

func TestStatic_Facts(t *testing.T) {
	s := Static{KernelHash: String("K1"), Verified: Bool(false)}

	f, err := s.Facts()
	require.NoError(t, err)
	assert.Equal(t, "K1", *f.KernelHash)
	assert.False(t, *f.Verified)
}
