// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"io"
	"time"
)

// PollingReader tolerates a source that momentarily has nothing to give. A
// Read that returns no data and no error is retried up to MaxEmptyReads
// times, sleeping Yield in between. The context is checked before every
// attempt.
type PollingReader struct {
	R             io.Reader
	Ctx           context.Context
	MaxEmptyReads int
	Yield         time.Duration
}

// NewPollingReader returns a PollingReader with the package defaults
func NewPollingReader(ctx context.Context, r io.Reader) *PollingReader {
	return &PollingReader{
		R:             r,
		Ctx:           ctx,
		MaxEmptyReads: MaxEmptyReads,
		Yield:         ReadYield,
	}
}

func (o *PollingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	ctx := o.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, err := o.R.Read(p)
		if n > 0 || err != nil {
			return n, err
		}

		if attempt >= o.MaxEmptyReads {
			return 0, io.ErrNoProgress
		}

		t := time.NewTimer(o.Yield)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}
