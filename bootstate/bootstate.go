// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package bootstate gives access to the security facts established by the
// boot-time measurement process: the machine binding, the measured kernel
// hash and the sealed/verified flags. Each fact is optional; an absent fact is
// "missing", never an error.
package bootstate

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the boot measurement process leaves its facts
const DefaultPath = "/run/hostattest/boot.yaml"

// Facts is the boot-established security context
type Facts struct {
	MachineBinding *string `yaml:"machine_binding"`
	KernelHash     *string `yaml:"kernel_hash"`
	DataCardAddr   *string `yaml:"data_card_addr"`
	Sealed         *bool   `yaml:"sealed"`
	Verified       *bool   `yaml:"verified"`
}

// Source supplies the current Facts
type Source interface {
	Facts() (Facts, error)
}

// Static is a fixed set of facts
type Static Facts

// Facts returns the static facts
func (s Static) Facts() (Facts, error) {
	return Facts(s), nil
}

// FileSource reads the facts from a YAML document on every call. A missing
// file yields empty facts.
type FileSource struct {
	Path string
}

// Facts reads and decodes the facts file
func (s FileSource) Facts() (Facts, error) {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Facts{}, nil
		}
		return Facts{}, fmt.Errorf("reading boot facts: %w", err)
	}

	var f Facts
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Facts{}, fmt.Errorf("decoding boot facts %q: %w", path, err)
	}

	// an empty string is as good as no value at all
	for _, p := range []**string{&f.MachineBinding, &f.KernelHash, &f.DataCardAddr} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}

	return f, nil
}

// String returns a pointer to s, for building Facts literals
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building Facts literals
func Bool(b bool) *bool { return &b }
