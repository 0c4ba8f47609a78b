// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package hostattest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/sirupsen/logrus"
	"github.com/veraison/hostattest/bootstate"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/common"
	"github.com/veraison/hostattest/config"
	"github.com/veraison/hostattest/evidence"
	"github.com/veraison/hostattest/integrity"
	"github.com/veraison/hostattest/keystore"
	"github.com/veraison/hostattest/verification"
)

// Agent owns the capability handle of the process and the components built
// on top of it.
type Agent struct {
	Config       *config.Config
	Capabilities *capability.Handle
	Client       *common.Client
	Keys         *keystore.FileStore
	Facts        bootstate.Source
	Inventory    evidence.Inventory
	Keyring      openpgp.EntityList
	Logger       logrus.FieldLogger
}

// NewAgent builds an Agent from cfg. No device is probed until first use.
func NewAgent(cfg *config.Config, log logrus.FieldLogger) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	probes, err := Probes(cfg)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		Config:       cfg,
		Capabilities: capability.NewHandle(probes...),
		Client:       client,
		Keys:         &keystore.FileStore{PrivatePath: cfg.Keys.Private, PublicPath: cfg.Keys.Public},
		Facts:        bootstate.FileSource{Path: cfg.BootState},
		Logger:       log,
	}
	a.Capabilities.Logger = log

	switch cfg.Inventory.Source {
	case config.InventoryStatic:
		a.Inventory = evidence.StaticInventory(cfg.Inventory.Components)
	default:
		a.Inventory = evidence.SysfsInventory{Root: cfg.Inventory.SysfsRoot}
	}

	if cfg.ManifestKeyring != "" {
		if a.Keyring, err = integrity.LoadKeyring(cfg.ManifestKeyring); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// tpmProbe is replaced in tests
var tpmProbe = capability.TPMProbe

// Probes returns the device probes in configured order, each capped at
// max_tier. The order only matters between devices of equal tier.
func Probes(cfg *config.Config) ([]capability.Probe, error) {
	maxTier, err := cfg.Tier()
	if err != nil {
		return nil, err
	}

	var probes []capability.Probe
	for _, d := range cfg.Devices {
		switch d {
		case config.DeviceTPM:
			probes = append(probes, capability.Capped(tpmProbe(cfg.TPMPaths...), maxTier))
		case config.DeviceSoftware:
			probes = append(probes, capability.Capped(capability.SoftwareProbe(), maxTier))
		default:
			return nil, fmt.Errorf("unknown device %q", d)
		}
	}
	return probes, nil
}

// Collector returns the evidence collector wired to the agent's sources
func (a *Agent) Collector() evidence.Collector {
	return evidence.Collector{
		Capabilities: a.Capabilities,
		Facts:        a.Facts,
		Inventory:    a.Inventory,
		Logger:       a.Logger,
	}
}

// Evidence collects the current machine state
func (a *Agent) Evidence() (*evidence.Evidence, error) {
	return a.Collector().Collect()
}

// ChallengeResponseConfig returns the attestation exchange configuration
func (a *Agent) ChallengeResponseConfig() (verification.ChallengeResponseConfig, error) {
	var cfg verification.ChallengeResponseConfig

	if a.Config.Endpoint == "" {
		return cfg, errors.New("no endpoint configured")
	}

	if err := cfg.SetEndpointURI(a.Config.Endpoint); err != nil {
		return cfg, err
	}
	if err := cfg.SetClient(a.Client); err != nil {
		return cfg, err
	}

	cfg.Capabilities = a.Capabilities
	cfg.Keys = a.Keys
	cfg.Collector = a.Collector()
	cfg.Logger = a.Logger

	return cfg, nil
}

// Attest runs one attestation attempt
func (a *Agent) Attest(ctx context.Context) verification.Outcome {
	cfg, err := a.ChallengeResponseConfig()
	if err != nil {
		return verification.Failed{Err: err}
	}
	return cfg.Run(ctx)
}

// Verifier returns the runtime integrity verifier
func (a *Agent) Verifier() integrity.Verifier {
	return integrity.Verifier{
		Capabilities:    a.Capabilities,
		Facts:           a.Facts,
		KernelImagePath: a.Config.KernelImage,
		ManifestPath:    a.Config.Manifest,
		Keyring:         a.Keyring,
		Logger:          a.Logger,
	}
}

// CheckIntegrity runs one integrity check
func (a *Agent) CheckIntegrity(ctx context.Context) (bool, *integrity.Report, error) {
	return a.Verifier().Verify(ctx)
}

// Monitor checks integrity every monitor_interval until ctx ends
func (a *Agent) Monitor(ctx context.Context, onReport func(bool, *integrity.Report, error)) error {
	return integrity.Monitor{
		Verifier: a.Verifier(),
		Interval: a.Config.MonitorInterval,
		OnReport: onReport,
	}.Run(ctx)
}

// Tier binds a device if needed and returns its tier
func (a *Agent) Tier() (capability.Tier, string, error) {
	p, err := a.Capabilities.Provider()
	if err != nil {
		return capability.TierNone, "", err
	}
	return p.Tier(), p.DeviceName(), nil
}

// GenerateKeys mints an attestation key pair on the bound device and saves
// it. An existing pair is only replaced when overwrite is set.
func (a *Agent) GenerateKeys(bits int, overwrite bool) (*capability.KeyPair, error) {
	if a.Keys.Exists() && !overwrite {
		return nil, fmt.Errorf("key pair already present at %s", a.Keys.PrivatePath)
	}

	p, err := a.Capabilities.Provider()
	if err != nil {
		return nil, err
	}

	kp, err := p.GenerateKeyPair(bits)
	if err != nil {
		return nil, err
	}

	if err := a.Keys.Save(kp); err != nil {
		return nil, err
	}

	a.Logger.WithFields(logrus.Fields{
		"device": p.DeviceName(),
		"path":   a.Keys.PrivatePath,
	}).Info("attestation key pair generated")

	return kp, nil
}

// Close releases the bound device
func (a *Agent) Close() error {
	return a.Capabilities.Close()
}
