//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/handlescan/handlescan/internal/core"
)

func TestPlatformSetCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SeedBuiltInSets(ctx))

	builtin, err := store.GetSet(ctx, "dev")
	require.NoError(t, err)
	require.NotNil(t, builtin)
	require.True(t, builtin.IsBuiltin)
	require.Contains(t, builtin.Set.Platforms, "github")

	custom := core.PlatformSet{
		Name:        "portfolio",
		Description: "Places a portfolio link should resolve",
		Platforms:   []string{"github", "medium", "vimeo"},
	}
	require.NoError(t, store.UpsertSet(ctx, custom, false, time.Now().UTC()))

	record, err := store.GetSet(ctx, "portfolio")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.False(t, record.IsBuiltin)
	require.Equal(t, custom.Description, record.Set.Description)
	require.Equal(t, custom.Platforms, record.Set.Platforms)

	sets, err := store.ListSets(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sets)

	names := make([]string, 0, len(sets))
	for _, set := range sets {
		names = append(names, set.Set.Name)
	}
	require.Contains(t, names, "portfolio")
	require.Contains(t, names, "major")
}

func TestDeleteSet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SeedBuiltInSets(ctx))

	custom := core.PlatformSet{Name: "scratch", Platforms: []string{"github"}}
	require.NoError(t, store.UpsertSet(ctx, custom, false, time.Now().UTC()))
	require.NoError(t, store.DeleteSet(ctx, "scratch"))

	record, err := store.GetSet(ctx, "scratch")
	require.NoError(t, err)
	require.Nil(t, record)

	require.Error(t, store.DeleteSet(ctx, "major"))
	require.Error(t, store.DeleteSet(ctx, "scratch"))
}
