// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package hostattest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/hostattest/auth"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/common"
	"github.com/veraison/hostattest/config"
	"github.com/veraison/hostattest/evidence"
	"github.com/veraison/hostattest/verification"
)

func b64sha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// testConfig returns a software-only configuration rooted in a temp dir
func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()

	boot := filepath.Join(dir, "boot.yaml")
	require.NoError(t, os.WriteFile(boot, []byte("machine_binding: MACH-1\nkernel_hash: "+b64sha256("kernel")+"\n"), 0o600))

	kernel := filepath.Join(dir, "vmlinuz")
	require.NoError(t, os.WriteFile(kernel, []byte("kernel"), 0o600))

	cfg := config.Default()
	cfg.Endpoint = "http://verifier.example/api/attest"
	cfg.Devices = []string{config.DeviceSoftware}
	cfg.Keys = config.KeysConfig{
		Private: filepath.Join(dir, "attest.key"),
		Public:  filepath.Join(dir, "attest.pub"),
	}
	cfg.BootState = boot
	cfg.KernelImage = kernel
	cfg.Manifest = filepath.Join(dir, "manifest")
	cfg.Inventory = config.InventoryConfig{
		Source:     config.InventoryStatic,
		Components: []evidence.Component{{Type: "cpu", Address: "AAAAAAAAFFFF"}},
	}
	return cfg
}

func newTestAgent(t *testing.T, cfg *config.Config) (*Agent, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	a, err := NewAgent(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, hook
}

func TestAgent_Tier(t *testing.T) {
	a, _ := newTestAgent(t, testConfig(t))

	tier, name, err := a.Tier()
	require.NoError(t, err)
	assert.Equal(t, capability.TierFull, tier)
	assert.Equal(t, "software", name)
}

func TestAgent_Tier_capped(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTier = "basic"
	a, _ := newTestAgent(t, cfg)

	tier, _, err := a.Tier()
	require.NoError(t, err)
	assert.Equal(t, capability.TierBasic, tier)
}

func TestAgent_Evidence(t *testing.T) {
	a, _ := newTestAgent(t, testConfig(t))

	ev, err := a.Evidence()
	require.NoError(t, err)
	assert.Equal(t, "cpu:AAAAAAAA", ev.Components())
	assert.Equal(t, b64sha256("MACH-1"+b64sha256("kernel")+"cpu:AAAAAAAA"), ev.Hash())
}

func TestAgent_GenerateKeys(t *testing.T) {
	a, hook := newTestAgent(t, testConfig(t))

	kp, err := a.GenerateKeys(capability.MinRSABits, false)
	require.NoError(t, err)
	assert.Equal(t, "attestation key pair generated", hook.LastEntry().Message)

	loaded, err := a.Keys.LoadKeyPair()
	require.NoError(t, err)
	assert.Equal(t, kp.Public, loaded.Public)

	_, err = a.GenerateKeys(capability.MinRSABits, false)
	assert.ErrorContains(t, err, "key pair already present")
}

// standardTPM stands in for a TPM: hashing and randomness, no signing
type standardTPM struct{ closed *bool }

func (standardTPM) Name() string { return "tpm:/dev/tpmrm0" }

func (standardTPM) Tier() capability.Tier { return capability.TierStandard }

func (standardTPM) Hash(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (standardTPM) Random(n int) ([]byte, error) { return make([]byte, n), nil }

func (d standardTPM) Close() error {
	*d.closed = true
	return nil
}

func TestAgent_GenerateKeys_default_devices_with_tpm(t *testing.T) {
	closed := false
	saved := tpmProbe
	tpmProbe = func(paths ...string) capability.Probe {
		return func() (capability.Device, error) { return standardTPM{closed: &closed}, nil }
	}
	defer func() { tpmProbe = saved }()

	cfg := testConfig(t)
	cfg.Devices = config.Default().Devices
	require.Equal(t, config.DeviceTPM, cfg.Devices[0])
	a, _ := newTestAgent(t, cfg)

	tier, name, err := a.Tier()
	require.NoError(t, err)
	assert.Equal(t, capability.TierFull, tier)
	assert.Equal(t, "software", name)
	assert.True(t, closed)

	_, err = a.GenerateKeys(capability.MinRSABits, false)
	assert.NoError(t, err)
}

func TestAgent_GenerateKeys_below_full(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxTier = "standard"
	a, _ := newTestAgent(t, cfg)

	_, err := a.GenerateKeys(capability.MinRSABits, false)
	assert.ErrorIs(t, err, capability.ErrUnsupportedTier)
	assert.False(t, a.Keys.Exists())
}

func TestAgent_Attest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Method: "token", Params: map[string]interface{}{"token": "api-token"}}
	a, _ := newTestAgent(t, cfg)

	_, err := a.GenerateKeys(capability.MinRSABits, false)
	require.NoError(t, err)

	var sub verification.AttestationRequest
	h := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer api-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		switch body["action"] {
		case "challenge":
			assert.Equal(t, "MACH-1", body["machine_id"])
			_, _ = w.Write([]byte(`{"nonce":"N1","challenge_id":"C1"}`))
		default:
			b, _ := json.Marshal(body)
			assert.NoError(t, json.Unmarshal(b, &sub))
			_, _ = w.Write([]byte(`{"status":"attested","session_token":"TOKEN-1"}`))
		}
	}
	client, teardown := common.NewTestingHTTPClient(http.HandlerFunc(h))
	defer teardown()
	client.Auth = a.Client.Auth
	a.Client = client

	o := a.Attest(context.Background())

	require.IsType(t, verification.Attested{}, o)
	assert.Equal(t, "TOKEN-1", o.(verification.Attested).SessionToken)
	assert.True(t, o.(verification.Attested).Signature.IsSigned())
	assert.NotEqual(t, "UNSIGNED", sub.Signature)
	assert.Equal(t, "MACH-1", sub.MachineBinding)
}

func TestAgent_Attest_no_endpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Endpoint = ""
	a, _ := newTestAgent(t, cfg)

	o := a.Attest(context.Background())
	require.IsType(t, verification.Failed{}, o)
	assert.EqualError(t, o.(verification.Failed).Err, "no endpoint configured")
}

func TestAgent_CheckIntegrity(t *testing.T) {
	cfg := testConfig(t)
	tracked := filepath.Join(filepath.Dir(cfg.Manifest), "tracked")
	require.NoError(t, os.WriteFile(tracked, []byte("data"), 0o600))
	require.NoError(t, os.WriteFile(cfg.Manifest, []byte("- path: "+tracked+"\n  hash: "+b64sha256("data")+"\n"), 0o600))
	a, _ := newTestAgent(t, cfg)

	clean, r, err := a.CheckIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, clean)
	assert.Equal(t, "unverified", string(r.Manifest))

	require.NoError(t, os.WriteFile(tracked, []byte("tampered"), 0o600))
	clean, r, err = a.CheckIntegrity(context.Background())
	require.NoError(t, err)
	assert.False(t, clean)
	assert.Equal(t, 1, r.FilesModified)
}

func TestNewAgent_bad_auth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Method: "token"}

	_, err := NewAgent(cfg, nil)
	assert.EqualError(t, err, "token authentication: missing token or token_file")
}

func TestNewAgent_bad_keyring(t *testing.T) {
	cfg := testConfig(t)
	cfg.ManifestKeyring = filepath.Join(t.TempDir(), "missing.asc")

	_, err := NewAgent(cfg, nil)
	assert.ErrorContains(t, err, "opening keyring")
}

func TestNewClient_oauth2_shares_transport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Method: "oauth2", Params: map[string]interface{}{
		"client_id":     "c",
		"client_secret": "s",
		"token_url":     "https://idp.example/token",
		"username":      "u",
		"password":      "p",
	}}

	client, err := NewClient(cfg)
	require.NoError(t, err)

	oa, ok := client.Auth.(*auth.Oauth2Authenticator)
	require.True(t, ok)
	assert.Same(t, &client.HTTPClient, oa.HTTPClient)
	assert.Equal(t, cfg.Timeout, client.HTTPClient.Timeout)
}
