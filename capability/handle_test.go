// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	hashOnly
	closed *int
}

func (c closeCounter) Close() error {
	*c.closed++
	return nil
}

func TestHandle_Provider_binds_once(t *testing.T) {
	calls := 0
	probe := func() (Device, error) {
		calls++
		return hashOnly{tier: TierBasic}, nil
	}
	h := NewHandle(probe)
	assert.Equal(t, TierNone, h.Tier())

	p1, err := h.Provider()
	require.NoError(t, err)
	p2, err := h.Provider()
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, TierBasic, h.Tier())
}

func TestHandle_Provider_no_hardware(t *testing.T) {
	h := NewHandle(absent)

	_, err := h.Provider()
	assert.ErrorIs(t, err, ErrNoHardware)
	assert.Equal(t, TierNone, h.Tier())
}

func TestHandle_Reinitialize_replaces_binding(t *testing.T) {
	closed := 0
	tier := TierBasic
	probe := func() (Device, error) {
		return closeCounter{hashOnly: hashOnly{tier: tier}, closed: &closed}, nil
	}
	h := NewHandle(probe)

	p1, err := h.Provider()
	require.NoError(t, err)
	assert.Equal(t, TierBasic, p1.Tier())

	got, err := h.Reinitialize()
	require.NoError(t, err)
	assert.Equal(t, TierBasic, got)
	assert.Equal(t, 1, closed)

	p2, err := h.Provider()
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
	// the old provider is untouched
	assert.Equal(t, TierBasic, p1.Tier())

	require.NoError(t, h.Close())
	assert.Equal(t, 2, closed)
	assert.Equal(t, TierNone, h.Tier())
}

func TestHandle_Reinitialize_failure_keeps_binding(t *testing.T) {
	present := true
	probe := func() (Device, error) {
		if !present {
			return nil, ErrDeviceAbsent
		}
		return hashOnly{tier: TierBasic}, nil
	}
	h := NewHandle(probe)
	_, err := h.Provider()
	require.NoError(t, err)

	present = false
	_, err = h.Reinitialize()
	assert.ErrorIs(t, err, ErrNoHardware)
	assert.Equal(t, TierBasic, h.Tier())
}

func TestHandle_Provider_concurrent_first_use(t *testing.T) {
	var calls atomic.Int32
	probe := func() (Device, error) {
		calls.Add(1)
		return hashOnly{tier: TierBasic}, nil
	}
	h := NewHandle(probe)

	const n = 16
	got := make([]*Provider, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = h.Provider()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, got[i])
		assert.Same(t, got[0], got[i])
	}
}

func TestHandle_Provider_after_close_binds_again(t *testing.T) {
	closed := 0
	probe := func() (Device, error) {
		return closeCounter{hashOnly: hashOnly{tier: TierBasic}, closed: &closed}, nil
	}
	h := NewHandle(probe)

	p1, err := h.Provider()
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.Equal(t, 1, closed)

	p2, err := h.Provider()
	require.NoError(t, err)
	require.NotNil(t, p2)
	assert.NotSame(t, p1, p2)
	assert.Equal(t, TierBasic, h.Tier())
}
