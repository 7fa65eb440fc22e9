package runlock

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "packrat.lock")

	first, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeld))

	held, err := Held(path)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	held, err = Held(path)
	require.NoError(t, err)
	assert.False(t, held)

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestHeldWithoutLockFile(t *testing.T) {
	held, err := Held(filepath.Join(t.TempDir(), "missing.lock"))
	require.NoError(t, err)
	assert.False(t, held)
}
