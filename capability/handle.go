// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handle is the process-scoped binding to one cryptographic device. It is
// created once by the program and injected into the components that need
// cryptographic primitives.
type Handle struct {
	probes []Probe
	mu     sync.Mutex // serializes probing
	bound  atomic.Pointer[Provider]
	Logger logrus.FieldLogger
}

// NewHandle returns an unbound Handle that will probe in the given order
func NewHandle(probes ...Probe) *Handle {
	return &Handle{probes: probes}
}

func (h *Handle) logger() logrus.FieldLogger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// Provider returns the bound Provider, probing on first use. Concurrent
// first uses probe once.
func (h *Handle) Provider() (*Provider, error) {
	if p := h.bound.Load(); p != nil {
		return p, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if p := h.bound.Load(); p != nil {
		return p, nil
	}
	p, err := initialize(h.logger(), h.probes)
	if err != nil {
		return nil, err
	}
	h.bound.Store(p)
	return p, nil
}

// Reinitialize probes again and atomically replaces the bound Provider. The
// previous device is released.
func (h *Handle) Reinitialize() (Tier, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := initialize(h.logger(), h.probes)
	if err != nil {
		return TierNone, err
	}
	if old := h.bound.Swap(p); old != nil {
		closeDevice(old.dev)
	}
	return p.tier, nil
}

// Tier returns the bound tier without probing
func (h *Handle) Tier() Tier {
	return h.bound.Load().Tier()
}

// Close releases the bound device, if any
func (h *Handle) Close() error {
	old := h.bound.Swap(nil)
	if old == nil {
		return nil
	}
	if c, ok := old.dev.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
