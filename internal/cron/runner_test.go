package cronrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultSchedules(t *testing.T) {
	for _, spec := range []string{
		"0 5,10,20,25,35,40,50,55 7-23 * * *",
		"0 15,45 7-23 * * *",
		"0 0,30 7-23 * * *",
	} {
		require.NoError(t, Validate(spec), spec)
	}
	require.Error(t, Validate("*/5 * * * *"))
}

func TestNextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	r := New(nil, context.Background(), loc)
	id, err := r.Add("0 0,30 7-23 * * *", func(context.Context) {})
	require.NoError(t, err)
	require.True(t, r.Next(id).IsZero())

	r.Start()
	defer r.Stop()
	require.Eventually(t, func() bool { return !r.Next(id).IsZero() }, time.Second, 10*time.Millisecond)
	next := r.Next(id).In(loc)
	require.Contains(t, []int{0, 30}, next.Minute())
	require.GreaterOrEqual(t, next.Hour(), 7)
}
