package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/kydos/bnd-socket/log"
)

func Test_genTrackID(t *testing.T) {
	for i := 0; i < 1000; i++ {
		require.Regexp(t, "^[0-9]{4}-[0-9]{4}-[0-9]{4}$", GenTrackID())
	}
}

func TestTrackStreamID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, TrackStreamID(ctx))
	ctx = WithTrackStreamID(ctx)
	require.Regexp(t, "^[0-9]{4}-[0-9]{4}-[0-9]{4}$", TrackStreamID(ctx))
}

func TestTrackLinkID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, TrackLinkID(ctx))
	ctx = WithTrackLinkID(ctx, "link-1")
	require.Equal(t, "link-1", TrackLinkID(ctx))
}
