package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/symdiff/pkg/deps"
	"github.com/ritzau/symdiff/pkg/dump"
)

func loadFixture(t *testing.T, version, module string) *dump.Module {
	t.Helper()
	mod, err := dump.Load(filepath.Join("..", "dump", "testdata", version, module+".symtab.json"))
	require.NoError(t, err)
	return mod
}

func TestSessionInitialUpdate(t *testing.T) {
	s := NewSession(nil)
	ctx := context.Background()

	result, err := s.Update(ctx, loadFixture(t, "before", "pkg.mod"))
	require.NoError(t, err)
	assert.True(t, result.Initial)
	assert.False(t, result.Changed())
	assert.Empty(t, result.Affected)
	assert.NotEqual(t, uuid.Nil, result.ID)

	assert.Equal(t, []string{"pkg.mod"}, s.Modules())
	snap, ok := s.Snapshot("pkg.mod")
	require.True(t, ok)
	assert.Len(t, snap, 7)
}

func TestSessionUnchanged(t *testing.T) {
	s := NewSession(nil)
	ctx := context.Background()

	_, err := s.Update(ctx, loadFixture(t, "before", "pkg.mod"))
	require.NoError(t, err)
	before, _ := s.Fingerprint("pkg.mod")

	result, err := s.Update(ctx, loadFixture(t, "before", "pkg.mod"))
	require.NoError(t, err)
	assert.False(t, result.Initial)
	assert.Empty(t, result.Triggers)

	after, _ := s.Fingerprint("pkg.mod")
	assert.Equal(t, before, after)
}

func TestSessionChanged(t *testing.T) {
	s := NewSession(deps.NewGraph())
	ctx := context.Background()

	for _, m := range []string{"pkg.mod", "pkg.user"} {
		_, err := s.Update(ctx, loadFixture(t, "before", m))
		require.NoError(t, err)
	}

	result, err := s.Update(ctx, loadFixture(t, "after", "pkg.mod"))
	require.NoError(t, err)
	assert.Equal(t, "pkg.mod", result.Module)
	assert.Equal(t, []string{"pkg.mod.C.method", "pkg.mod.x", "pkg.mod.z"}, result.Triggers)
	assert.Equal(t, []string{"pkg.user.g", "pkg.user.h"}, result.Affected)
	assert.Equal(t, [][]string{{"pkg.user.g", "pkg.user.h"}}, result.Groups)

	fp, _ := s.Fingerprint("pkg.mod")
	assert.NotEmpty(t, fp)
}

func TestSessionUnrelatedModuleNotAffected(t *testing.T) {
	s := NewSession(nil)
	ctx := context.Background()

	_, err := s.Update(ctx, loadFixture(t, "before", "pkg.user"))
	require.NoError(t, err)

	result, err := s.Update(ctx, loadFixture(t, "after", "pkg.user"))
	require.NoError(t, err)
	assert.Empty(t, result.Triggers)
	assert.Empty(t, result.Affected)
}

func TestSessionRemove(t *testing.T) {
	s := NewSession(nil)
	ctx := context.Background()

	_, err := s.Update(ctx, loadFixture(t, "before", "pkg.mod"))
	require.NoError(t, err)

	result, ok := s.Remove(ctx, "pkg.mod")
	require.True(t, ok)
	assert.True(t, result.Removed)
	assert.Equal(t, []string{
		"pkg.mod.Alias",
		"pkg.mod.C",
		"pkg.mod.T",
		"pkg.mod.f",
		"pkg.mod.os",
		"pkg.mod.path",
		"pkg.mod.x",
	}, result.Triggers)
	// Members of a removed class are not listed separately
	assert.Equal(t, []string{"pkg.user.g"}, result.Affected)
	assert.Equal(t, [][]string{{"pkg.user.g"}}, result.Groups)

	assert.Empty(t, s.Modules())
	assert.Equal(t, 0, s.Graph().Len())

	_, ok = s.Remove(ctx, "pkg.mod")
	assert.False(t, ok)
}

func TestSessionCancelled(t *testing.T) {
	s := NewSession(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Update(ctx, loadFixture(t, "before", "pkg.mod"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Modules())
}
