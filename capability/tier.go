// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is the ordered capability level of the bound cryptographic device.
// Every tier supports all the operations of the tiers below it.
type Tier int

const (
	TierNone     Tier = iota // nothing usable
	TierBasic                // hash, encode, decode
	TierStandard             // + random
	TierFull                 // + sign, key generation
)

var tierNames = map[Tier]string{
	TierNone:     "none",
	TierBasic:    "basic",
	TierStandard: "standard",
	TierFull:     "full",
}

// String returns the lower-case name of the tier
func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier returns the Tier with the supplied name
func ParseTier(s string) (Tier, error) {
	for t, name := range tierNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown capability tier %q", s)
}

var (
	// ErrNoHardware is returned when no usable cryptographic device could be
	// bound. It is definitive, not transient.
	ErrNoHardware = errors.New("no usable cryptographic device")

	// ErrUnsupportedTier is matched by every UnsupportedTierError.
	ErrUnsupportedTier = errors.New("operation not supported at bound capability tier")

	// ErrDeviceAbsent is returned by a Probe whose hardware is not present.
	ErrDeviceAbsent = errors.New("device not present")
)

// UnsupportedTierError reports an operation requested above the bound tier.
type UnsupportedTierError struct {
	Op       string
	Required Tier
	Bound    Tier
}

func (e *UnsupportedTierError) Error() string {
	return fmt.Sprintf("%s requires capability tier %s, bound tier is %s", e.Op, e.Required, e.Bound)
}

// Is makes errors.Is(err, ErrUnsupportedTier) hold
func (e *UnsupportedTierError) Is(target error) bool {
	return target == ErrUnsupportedTier
}
