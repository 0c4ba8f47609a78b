// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package capability

// DefaultTPMPaths is empty: TBS access is not supported
var DefaultTPMPaths []string

// TPMProbe never finds a device on Windows
func TPMProbe(paths ...string) Probe {
	return func() (Device, error) {
		return nil, ErrDeviceAbsent
	}
}
