// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package evidence gathers the measurable state of the machine and derives a
// deterministic content hash over it.
package evidence

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/veraison/hostattest/bootstate"
	"github.com/veraison/hostattest/capability"
)

// Collector builds Evidence from the boot facts and the component inventory
type Collector struct {
	Capabilities capability.Source // hashing
	Facts        bootstate.Source  // optional, no facts when nil
	Inventory    Inventory         // optional, no components when nil
	Now          func() time.Time  // optional, time.Now when nil
	Logger       logrus.FieldLogger
}

// Collect snapshots the machine state. It fails with capability.ErrNoHardware
// when no cryptographic device can be bound.
func (c Collector) Collect() (*Evidence, error) {
	if c.Capabilities == nil {
		return nil, capability.ErrNoHardware
	}
	p, err := c.Capabilities.Provider()
	if err != nil {
		return nil, err
	}

	var facts bootstate.Facts
	if c.Facts != nil {
		if facts, err = c.Facts.Facts(); err != nil {
			return nil, fmt.Errorf("reading security context: %w", err)
		}
	}

	var components []Component
	if c.Inventory != nil {
		if components, err = c.Inventory.Components(); err != nil {
			return nil, fmt.Errorf("enumerating components: %w", err)
		}
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	ev, err := New(p, now().UTC(), State{
		MachineBinding: facts.MachineBinding,
		KernelHash:     facts.KernelHash,
		DataCardAddr:   facts.DataCardAddr,
		Sealed:         facts.Sealed,
		Verified:       facts.Verified,
		Components:     FormatComponents(components),
	})
	if err != nil {
		return nil, fmt.Errorf("hashing evidence: %w", err)
	}

	c.logger().WithFields(logrus.Fields{
		"device":     p.DeviceName(),
		"components": len(components),
	}).Debug("evidence collected")

	return ev, nil
}

func (c Collector) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
