// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package config decodes the hostattest configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/veraison/hostattest/bootstate"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/evidence"
	"github.com/veraison/hostattest/integrity"
	"github.com/veraison/hostattest/keystore"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "/etc/hostattest/config.yaml"

const (
	DeviceTPM      = "tpm"
	DeviceSoftware = "software"

	InventorySysfs  = "sysfs"
	InventoryStatic = "static"
)

// AuthConfig selects the credential scheme. Everything besides method is
// handed to the authenticator.
type AuthConfig struct {
	Method string                 `mapstructure:"method"`
	Params map[string]interface{} `mapstructure:",remain"`
}

type KeysConfig struct {
	Private string                 `mapstructure:"private"`
	Public  string                 `mapstructure:"public"`
	Rest    map[string]interface{} `mapstructure:",remain"`
}

type InventoryConfig struct {
	Source     string                 `mapstructure:"source"`
	SysfsRoot  string                 `mapstructure:"sysfs_root"`
	Components []evidence.Component   `mapstructure:"components"`
	Rest       map[string]interface{} `mapstructure:",remain"`
}

// Config is the agent configuration
type Config struct {
	Endpoint        string          `mapstructure:"endpoint"`
	Auth            AuthConfig      `mapstructure:"auth"`
	CACerts         []string        `mapstructure:"ca_certs"`
	Timeout         time.Duration   `mapstructure:"timeout"`
	Devices         []string        `mapstructure:"devices"`
	MaxTier         string          `mapstructure:"max_tier"`
	TPMPaths        []string        `mapstructure:"tpm_paths"`
	Keys            KeysConfig      `mapstructure:"keys"`
	BootState       string          `mapstructure:"boot_state"`
	KernelImage     string          `mapstructure:"kernel_image"`
	Manifest        string          `mapstructure:"manifest"`
	ManifestKeyring string          `mapstructure:"manifest_keyring"`
	MonitorInterval time.Duration   `mapstructure:"monitor_interval"`
	Inventory       InventoryConfig `mapstructure:"inventory"`

	Rest map[string]interface{} `mapstructure:",remain"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Timeout:         5 * time.Second,
		Devices:         []string{DeviceTPM, DeviceSoftware},
		MaxTier:         capability.TierFull.String(),
		TPMPaths:        append([]string{}, capability.DefaultTPMPaths...),
		Keys:            KeysConfig{Private: keystore.DefaultPrivatePath, Public: keystore.DefaultPublicPath},
		BootState:       bootstate.DefaultPath,
		KernelImage:     integrity.DefaultKernelImagePath,
		Manifest:        integrity.DefaultManifestPath,
		MonitorInterval: integrity.DefaultInterval,
		Inventory:       InventoryConfig{Source: InventorySysfs, SysfsRoot: evidence.DefaultSysfsRoot},
	}
}

// Load reads the YAML file at path on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Decode applies raw on top of the defaults and validates the result
func Decode(raw map[string]interface{}) (*Config, error) {
	cfg := Default()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		// lists replace the defaults rather than overlaying them
		ZeroFields: true,
		Result:     cfg,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(raw); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (o *Config) validate() error {
	for _, rest := range []map[string]interface{}{o.Rest, o.Keys.Rest, o.Inventory.Rest} {
		if err := checkUnexpected(rest); err != nil {
			return err
		}
	}

	if o.Endpoint != "" {
		u, err := url.Parse(o.Endpoint)
		if err != nil {
			return fmt.Errorf("malformed endpoint: %w", err)
		}
		if !u.IsAbs() {
			return errors.New("endpoint is not in absolute form")
		}
	}

	if _, err := o.Tier(); err != nil {
		return err
	}

	if len(o.Devices) == 0 {
		return errors.New("no devices configured")
	}
	for _, d := range o.Devices {
		switch d {
		case DeviceTPM, DeviceSoftware:
		default:
			return fmt.Errorf("unknown device %q", d)
		}
	}

	switch o.Inventory.Source {
	case InventorySysfs, InventoryStatic:
	default:
		return fmt.Errorf("unknown inventory source %q", o.Inventory.Source)
	}

	if o.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	return nil
}

// Tier returns the parsed max_tier
func (o *Config) Tier() (capability.Tier, error) {
	return capability.ParseTier(o.MaxTier)
}

func checkUnexpected(rest map[string]interface{}) error {
	if len(rest) == 0 {
		return nil
	}

	var unexpected []string
	for k := range rest {
		unexpected = append(unexpected, k)
	}
	sort.Strings(unexpected)

	return fmt.Errorf("unexpected fields in config: %s",
		strings.Join(unexpected, ", "))
}
