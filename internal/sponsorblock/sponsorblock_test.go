package sponsorblock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaquiz/internal/cache"
)

func seg(start, end float64) Segment {
	return Segment{Category: category, Segment: [2]float64{start, end}}
}

func TestMerge(t *testing.T) {
	in := []Segment{seg(30, 40), seg(0, 10), seg(5, 12), seg(39, 45)}
	got := Merge(in)
	require.Len(t, got, 2)
	assert.Equal(t, [2]float64{0, 12}, got[0].Segment)
	assert.Equal(t, [2]float64{30, 45}, got[1].Segment)
	// input order is left alone
	assert.Equal(t, [2]float64{30, 40}, in[0].Segment)

	assert.Empty(t, Merge(nil))
}

func TestLeadIn(t *testing.T) {
	length := 3 * time.Minute
	tests := []struct {
		name string
		segs []Segment
		want time.Duration
	}{
		{"none", nil, 0},
		{"intro", []Segment{seg(0.5, 12.5)}, 12500 * time.Millisecond},
		{"starts late", []Segment{seg(20, 30)}, 0},
		{"whole video", []Segment{seg(0, 180)}, 0},
		{"first of many", []Segment{seg(1, 8), seg(170, 180)}, 8 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leadIn(tt.segs, length))
		})
	}
}

func TestSkipperCachesSegments(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "abc", r.URL.Query().Get("videoID"))
		assert.Equal(t, category, r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`[{"category":"music_offtopic","segment":[0,9.5],"UUID":"u","actionType":"skip"}]`))
	}))
	defer srv.Close()

	sk := NewSkipper(NewClient(srv.URL, srv.Client()), cache.NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()

	assert.Equal(t, 9500*time.Millisecond, sk.LeadIn(ctx, "abc", 4*time.Minute))
	assert.Equal(t, 9500*time.Millisecond, sk.LeadIn(ctx, "abc", 4*time.Minute))
	assert.EqualValues(t, 1, hits.Load())

	assert.Zero(t, sk.LeadIn(ctx, "", 4*time.Minute))
	assert.Zero(t, sk.LeadIn(ctx, "abc", 0))
}

func TestSkipperNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sk := NewSkipper(NewClient(srv.URL, srv.Client()), nil, time.Minute, nil)
	assert.Zero(t, sk.LeadIn(context.Background(), "abc", time.Minute))
}

func TestSkipperBacksOffWhenUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	now := time.Unix(1000, 0)
	sk := NewSkipper(NewClient(srv.URL, srv.Client()), nil, 5*time.Minute, nil)
	sk.now = func() time.Time { return now }
	ctx := context.Background()

	assert.Zero(t, sk.LeadIn(ctx, "a", time.Minute))
	assert.Zero(t, sk.LeadIn(ctx, "b", time.Minute))
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(6 * time.Minute)
	assert.Zero(t, sk.LeadIn(ctx, "c", time.Minute))
	assert.EqualValues(t, 2, hits.Load())
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Segments(context.Background(), "x", []string{category})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
