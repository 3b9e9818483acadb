package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"spielebasar/internal/client/teamsl"
)

func TestSystemSettingsSwitches(t *testing.T) {
	_, store, _ := newTestService(t)
	ctx := context.Background()
	svc := &SystemSettingsService{Repo: store}

	require.NoError(t, svc.EnsureDefaultSwitches(ctx))
	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	key := FeatureKeyForHorizon(teamsl.HorizonThreeWeek)
	require.Equal(t, FeatureSyncThreeWeek, key)
	require.True(t, svc.IsEnabled(ctx, key, false))

	require.NoError(t, svc.SetEnabled(ctx, key, false))
	require.False(t, svc.IsEnabled(ctx, key, true))

	// Defaults never overwrite an operator's choice.
	require.NoError(t, svc.EnsureDefaultSwitches(ctx))
	require.False(t, svc.IsEnabled(ctx, key, true))

	require.True(t, svc.IsEnabled(ctx, "feature.unknown", true))
	require.True(t, IsFeatureSwitch("feature.sync.all"))
	require.False(t, IsFeatureSwitch("feature.sync.w2"))

	var nilSvc *SystemSettingsService
	require.True(t, nilSvc.IsEnabled(ctx, key, true))
}
