package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberResumeSuspend(t *testing.T) {
	var steps []string
	f := NewFiber(func(f *Fiber) error {
		steps = append(steps, "one")
		f.Suspend()
		steps = append(steps, "two")
		f.Suspend()
		steps = append(steps, "three")
		return nil
	})

	done, err := f.Resume()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"one"}, steps)

	done, err = f.Resume()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []string{"one", "two"}, steps)

	done, err = f.Resume()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []string{"one", "two", "three"}, steps)
}

func TestFiberError(t *testing.T) {
	f := NewFiber(func(f *Fiber) error {
		return ParseError("boom")
	})
	done, err := f.Resume()
	assert.True(t, done)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestFiberAbortReleasesStack(t *testing.T) {
	cleaned := false
	f := NewFiber(func(f *Fiber) error {
		defer func() { cleaned = true }()
		for {
			f.Suspend()
		}
	})
	done, err := f.Resume()
	require.NoError(t, err)
	require.False(t, done)

	f.Abort()
	assert.True(t, f.Finished())
	assert.True(t, cleaned, "deferred cleanup must run on abort")
}

func TestFiberAbortBeforeStart(t *testing.T) {
	ran := false
	f := NewFiber(func(f *Fiber) error {
		ran = true
		return nil
	})
	f.Abort()
	assert.True(t, f.Finished())
	assert.False(t, ran)
}

func TestYieldOutsideFiber(t *testing.T) {
	ps := NewParseState(NewStream())
	err := ps.Yield()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yield in non-suspendable context")
}

func TestFiberStatistics(t *testing.T) {
	before := Statistics().NumFibers
	f := NewFiber(func(f *Fiber) error {
		f.Suspend()
		return nil
	})
	_, _ = f.Resume()
	assert.Equal(t, before+1, Statistics().NumFibers)
	_, _ = f.Resume()
	assert.Equal(t, before, Statistics().NumFibers)
}
