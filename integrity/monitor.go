// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is the period of a Monitor with no Interval set
const DefaultInterval = 5 * time.Minute

// Monitor runs a Verifier periodically
type Monitor struct {
	Verifier Verifier
	Interval time.Duration

	// OnReport is called after every check. report is nil when err is set.
	OnReport func(clean bool, report *Report, err error)
}

// Run checks immediately and then once per Interval until ctx ends. It runs
// in the caller's goroutine and returns nil when ctx is cancelled, or the
// first error that is not a cancellation.
func (m Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		clean, report, err := m.Verifier.Verify(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if m.OnReport != nil {
			m.OnReport(clean, report, err)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
