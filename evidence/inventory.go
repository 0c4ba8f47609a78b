// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package evidence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Component is one attached piece of hardware
type Component struct {
	Type    string `mapstructure:"type" yaml:"type"`
	Address string `mapstructure:"address" yaml:"address"`
}

// addressPrefixLen is how much of the address goes into a component token
const addressPrefixLen = 8

// Token returns "<type>:<first 8 chars of address>"
func (c Component) Token() string {
	addr := c.Address
	if len(addr) > addressPrefixLen {
		addr = addr[:addressPrefixLen]
	}
	return c.Type + ":" + addr
}

// FormatComponents renders the inventory as sorted, comma-joined tokens. The
// order in which components were enumerated does not matter.
func FormatComponents(cs []Component) string {
	tokens := make([]string, 0, len(cs))
	for _, c := range cs {
		tokens = append(tokens, c.Token())
	}
	sort.Strings(tokens)
	return strings.Join(tokens, ",")
}

// Inventory enumerates the currently attached components
type Inventory interface {
	Components() ([]Component, error)
}

// StaticInventory is a fixed component list, typically from configuration
type StaticInventory []Component

func (s StaticInventory) Components() ([]Component, error) {
	return s, nil
}

// DefaultSysfsRoot is the Linux PCI device directory
const DefaultSysfsRoot = "/sys/bus/pci/devices"

// pciClassTypes maps PCI base class codes to component types
var pciClassTypes = map[uint64]string{
	0x01: "storage",
	0x02: "net",
	0x03: "display",
	0x06: "bridge",
	0x0c: "usb",
	0x10: "crypto",
}

// SysfsInventory enumerates PCI functions from sysfs. The address of a
// component is its sysfs directory name (domain:bus:device.function).
type SysfsInventory struct {
	Root string
}

func (s SysfsInventory) Components() ([]Component, error) {
	root := s.Root
	if root == "" {
		root = DefaultSysfsRoot
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	var cs []Component
	for _, e := range entries {
		cs = append(cs, Component{
			Type:    pciType(filepath.Join(root, e.Name(), "class")),
			Address: e.Name(),
		})
	}
	return cs, nil
}

// pciType reads a class file (e.g. "0x020000") and maps the base class
func pciType(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "pci"
	}
	class, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"), 16, 32)
	if err != nil {
		return "pci"
	}
	if t, ok := pciClassTypes[class>>16]; ok {
		return t
	}
	return "pci"
}
