package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu      sync.Mutex
	related map[string][]Track
	fail    map[string]error
	leadIn  map[string]time.Duration
	panics  bool
	streams int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{related: map[string][]Track{}, fail: map[string]error{}}
}

func ytTrack(id string) Track {
	return Track{
		Title:    "title " + id,
		URL:      "https://www.youtube.com/watch?v=" + id,
		VideoID:  id,
		Duration: 3 * time.Minute,
		Source:   SourceYouTube,
	}
}

// Resolve understands "a,b,c" as a playlist of three tracks.
func (r *fakeResolver) Resolve(_ context.Context, query, requestor string) ([]Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("resolver exploded")
	}
	if err, ok := r.fail[query]; ok {
		return nil, err
	}
	if query == "nothing" {
		return nil, nil
	}
	var out []Track
	for _, id := range strings.Split(query, ",") {
		t := ytTrack(id)
		t.Requestor = requestor
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeResolver) Stream(_ context.Context, t Track) (StreamInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams++
	if err, ok := r.fail["stream:"+t.VideoID]; ok {
		return StreamInfo{}, err
	}
	return StreamInfo{URL: t.URL + "#audio", Start: r.leadIn[t.VideoID]}, nil
}

func (r *fakeResolver) Related(_ context.Context, t Track) ([]Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.related[t.VideoID]
	if !ok {
		return nil, errors.New("no mix")
	}
	return rel, nil
}

type fakePlayback struct {
	mu      sync.Mutex
	req     StreamRequest
	h       StreamHandlers
	paused  bool
	stopped bool
	volume  float64
}

func (p *fakePlayback) Pause()  { p.mu.Lock(); p.paused = true; p.mu.Unlock() }
func (p *fakePlayback) Resume() { p.mu.Lock(); p.paused = false; p.mu.Unlock() }
func (p *fakePlayback) Stop()   { p.mu.Lock(); p.stopped = true; p.mu.Unlock() }

func (p *fakePlayback) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *fakePlayback) Position() time.Duration { return p.req.Seek }

type fakeConn struct {
	mu           sync.Mutex
	channel      string
	plays        []*fakePlayback
	disconnected int
}

func (c *fakeConn) ChannelID() string { return c.channel }

func (c *fakeConn) Play(_ context.Context, req StreamRequest, h StreamHandlers) (Playback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pb := &fakePlayback{req: req, h: h, volume: req.Volume}
	c.plays = append(c.plays, pb)
	return pb, nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	c.disconnected++
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) last() *fakePlayback {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.plays) == 0 {
		return nil
	}
	return c.plays[len(c.plays)-1]
}

func (c *fakeConn) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plays)
}

type fakeVoice struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConn
}

func (v *fakeVoice) Join(_ context.Context, _, userID string) (Conn, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	c := &fakeConn{channel: "vc-" + userID}
	v.conns = append(v.conns, c)
	return c, nil
}

func (v *fakeVoice) conn() *fakeConn {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.conns) == 0 {
		return nil
	}
	return v.conns[len(v.conns)-1]
}

type fakeQuiz struct {
	mu       sync.Mutex
	duration time.Duration
	failFor  map[string]bool
	calls    []string
	n        int
}

func (q *fakeQuiz) Generate(_ context.Context, username string, guessMode bool) (Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, username)
	if q.failFor[username] {
		return Track{}, errors.New("anime lookup failed")
	}
	q.n++
	kind := "Normal"
	if guessMode {
		kind = "Guess"
	}
	requestor := username
	if requestor == "" {
		requestor = RandomRequestor
	}
	return Track{
		Title:     "[AMQ " + kind + "] OP 1",
		URL:       "https://www.youtube.com/watch?v=quiz",
		VideoID:   "quiz",
		Duration:  q.duration,
		Source:    SourceYouTube,
		Requestor: requestor,
		Quiz: &QuizMeta{
			SongType:    "OP 1",
			SongName:    "Guren no Yumiya",
			AnimeTitle:  "Shingeki no Kyojin",
			GuessTitles: []string{"shingeki no kyojin", "attack on titan"},
			Guessable:   guessMode,
		},
	}, nil
}

func (q *fakeQuiz) ValidateUser(_ context.Context, username string) error {
	if username == "ghost" {
		return errors.New("user not found")
	}
	return nil
}

func (q *fakeQuiz) generated() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// fire runs a timer's callback even when stopped, as a late time.AfterFunc would.
func (c *fakeClock) fire(t *fakeTimer) {
	c.mu.Lock()
	t.fired = true
	c.mu.Unlock()
	t.f()
}

type harness struct {
	t        *testing.T
	s        *Session
	resolver *fakeResolver
	voice    *fakeVoice
	quiz     *fakeQuiz
	clock    *fakeClock
	user     Caller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		resolver: newFakeResolver(),
		voice:    &fakeVoice{},
		quiz:     &fakeQuiz{duration: 30 * time.Second, failFor: map[string]bool{}},
		clock:    &fakeClock{},
		user:     Caller{ID: "u1", Name: "alice"},
	}
	h.s = NewSession("g1", Deps{
		Resolver: h.resolver,
		Voice:    h.voice,
		Quiz:     h.quiz,
		Clock:    h.clock,
		Rand:     func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Options{EventBuffer: 4096})
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	h.t.Cleanup(cancel)
	return ctx
}

// state also acts as a barrier: every previously posted operation has run.
func (h *harness) state() Snapshot {
	h.t.Helper()
	snap, err := h.s.State(h.ctx())
	require.NoError(h.t, err)
	return snap
}

func (h *harness) play(query string) []Track {
	h.t.Helper()
	added, err := h.s.Play(h.ctx(), h.user, query)
	require.NoError(h.t, err)
	return added
}

func (h *harness) conn() *fakeConn { return h.voice.conn() }

func (h *harness) startLast() {
	h.conn().last().h.OnStart()
	h.state()
}

func (h *harness) finishLast() {
	h.conn().last().h.OnFinish()
	h.state()
}

func (h *harness) events() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-h.s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOf[T Event](evs []Event) []T {
	var out []T
	for _, ev := range evs {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func ids(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
