package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoplayPicksUnplayedRelated(t *testing.T) {
	h := newHarness(t)
	h.resolver.related["a"] = []Track{ytTrack("a"), ytTrack("r1"), ytTrack("r2")}

	cfg, err := h.s.ToggleAutoplay(h.ctx(), h.user)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.Unique)
	cfg, err = h.s.SetAutoplayWindow(h.ctx(), h.user, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Window)

	h.play("a")
	h.finishLast()

	snap := h.state()
	require.Len(t, snap.Queue, 2)
	next := snap.Queue[1]
	assert.Equal(t, "r1", next.VideoID)
	assert.Equal(t, AutoplayRequestor, next.Requestor)
	assert.NotEmpty(t, next.ID)
	assert.NotEqual(t, snap.Queue[0].ID, next.ID)
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, 2, snap.Autoplay.Played)

	assert.Len(t, eventsOf[AutoplaySearching](h.events()), 1)
}

func TestAutoplayRepeatsWhenNotUnique(t *testing.T) {
	h := newHarness(t)
	h.resolver.related["a"] = []Track{ytTrack("a"), ytTrack("r1")}

	_, err := h.s.ToggleAutoplay(h.ctx(), h.user)
	require.NoError(t, err)
	cfg, err := h.s.ToggleAutoplayUnique(h.ctx(), h.user)
	require.NoError(t, err)
	assert.False(t, cfg.Unique)

	h.play("a")
	_, err = h.s.Skip(h.ctx(), h.user)
	require.NoError(t, err)

	snap := h.state()
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, "a", snap.Queue[1].VideoID, "a window of 0 takes the top related track")
}

func TestAutoplayWindow(t *testing.T) {
	related := []Track{ytTrack("r1"), ytTrack("r2"), ytTrack("r3"), ytTrack("r4")}
	for range 10 {
		h := newHarness(t)
		h.resolver.related["a"] = related
		_, err := h.s.ToggleAutoplay(h.ctx(), h.user)
		require.NoError(t, err)
		_, err = h.s.SetAutoplayWindow(h.ctx(), h.user, 2)
		require.NoError(t, err)

		h.play("a")
		h.finishLast()

		snap := h.state()
		require.Len(t, snap.Queue, 2)
		assert.Contains(t, []string{"r1", "r2"}, snap.Queue[1].VideoID)
	}
}

func TestAutoplayWithoutRelated(t *testing.T) {
	h := newHarness(t)
	_, err := h.s.ToggleAutoplay(h.ctx(), h.user)
	require.NoError(t, err)

	h.play("z")
	started, err := h.s.Skip(h.ctx(), h.user)
	require.ErrorIs(t, err, ErrNoRelatedVideos)
	assert.Equal(t, KindResource, KindOf(err))
	assert.False(t, started)
	assert.False(t, h.state().Connected)
}

func TestAutoplayAllPlayed(t *testing.T) {
	h := newHarness(t)
	h.resolver.related["a"] = []Track{ytTrack("a")}
	_, err := h.s.ToggleAutoplay(h.ctx(), h.user)
	require.NoError(t, err)

	h.play("a")
	h.finishLast()

	snap := h.state()
	assert.Len(t, snap.Queue, 1)
	assert.False(t, snap.Connected)

	errs := eventsOf[ErrorEvent](h.events())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrNoRelatedVideos)
}
