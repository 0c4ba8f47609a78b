// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/evidence"
)

func writeConfig(t *testing.T, doc string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestLoad_full(t *testing.T) {
	path := writeConfig(t, `
endpoint: https://verifier.example/api/attest
auth:
  method: token
  token_file: /etc/hostattest/token
ca_certs: [/etc/hostattest/ca.pem]
timeout: 10s
devices: [software]
max_tier: standard
keys:
  private: /srv/attest.key
  public: /srv/attest.pub
boot_state: /srv/boot.yaml
kernel_image: /srv/vmlinuz
manifest: /srv/manifest
manifest_keyring: /srv/keyring.asc
monitor_interval: 1m
inventory:
  source: static
  components:
    - type: cpu
      address: AAAAAAAAFFFF
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://verifier.example/api/attest", cfg.Endpoint)
	assert.Equal(t, "token", cfg.Auth.Method)
	assert.Equal(t, map[string]interface{}{"token_file": "/etc/hostattest/token"}, cfg.Auth.Params)
	assert.Equal(t, []string{"/etc/hostattest/ca.pem"}, cfg.CACerts)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"software"}, cfg.Devices)
	assert.Equal(t, "/srv/attest.key", cfg.Keys.Private)
	assert.Equal(t, "/srv/attest.pub", cfg.Keys.Public)
	assert.Equal(t, "/srv/boot.yaml", cfg.BootState)
	assert.Equal(t, "/srv/vmlinuz", cfg.KernelImage)
	assert.Equal(t, "/srv/manifest", cfg.Manifest)
	assert.Equal(t, "/srv/keyring.asc", cfg.ManifestKeyring)
	assert.Equal(t, time.Minute, cfg.MonitorInterval)
	assert.Equal(t, InventoryStatic, cfg.Inventory.Source)
	assert.Equal(t, []evidence.Component{{Type: "cpu", Address: "AAAAAAAAFFFF"}}, cfg.Inventory.Components)

	tier, err := cfg.Tier()
	require.NoError(t, err)
	assert.Equal(t, capability.TierStandard, tier)
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "endpoint: https://verifier.example/api/attest\n"))
	require.NoError(t, err)

	def := Default()
	def.Endpoint = "https://verifier.example/api/attest"
	assert.Equal(t, def, cfg)
}

func TestLoad_missing_file(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_unexpected_fields(t *testing.T) {
	_, err := Load(writeConfig(t, "endpoint: https://v.example/\nretries: 3\nverbose: true\n"))
	assert.ErrorContains(t, err, "unexpected fields in config: retries, verbose")
}

func TestLoad_unexpected_nested_fields(t *testing.T) {
	_, err := Load(writeConfig(t, "keys:\n  private: /a\n  passphrase: x\n"))
	assert.ErrorContains(t, err, "unexpected fields in config: passphrase")
}

func TestLoad_malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "endpoint: [\n"))
	assert.ErrorContains(t, err, "parsing config")
}

func TestDecode_devices_replace_defaults(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{"devices": "software"})
	require.NoError(t, err)
	assert.Equal(t, []string{"software"}, cfg.Devices)
}

func TestDecode_invalid(t *testing.T) {
	for _, tc := range []struct {
		raw map[string]interface{}
		err string
	}{
		{map[string]interface{}{"max_tier": "ultra"}, `unknown capability tier "ultra"`},
		{map[string]interface{}{"devices": []string{"hsm"}}, `unknown device "hsm"`},
		{map[string]interface{}{"devices": []string{}}, "no devices configured"},
		{map[string]interface{}{"endpoint": "verifier.example/attest"}, "endpoint is not in absolute form"},
		{map[string]interface{}{"inventory": map[string]interface{}{"source": "usb"}}, `unknown inventory source "usb"`},
		{map[string]interface{}{"timeout": "0s"}, "timeout must be positive"},
	} {
		_, err := Decode(tc.raw)
		assert.EqualError(t, err, tc.err)
	}
}
