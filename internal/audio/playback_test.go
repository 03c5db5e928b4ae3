package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

type fakeSpeaker struct {
	mu    sync.Mutex
	calls []bool
}

func (f *fakeSpeaker) Speaking(b bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, b)
	return nil
}

func (f *fakeSpeaker) last() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls) > 0 && f.calls[len(f.calls)-1]
}

type recorder struct {
	started, finished atomic.Int32
	mu                sync.Mutex
	err               error
}

func (r *recorder) handlers() player.StreamHandlers {
	return player.StreamHandlers{
		OnStart:  func() { r.started.Add(1) },
		OnFinish: func() { r.finished.Add(1) },
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		},
	}
}

func (r *recorder) error() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func packets(n int, end error) sourceFunc {
	return func(ctx context.Context, _ func() float64, emit func([]byte) error) error {
		for i := range n {
			if err := emit([]byte{byte(i)}); err != nil {
				return err
			}
		}
		return end
	}
}

func drain(sink chan []byte) {
	go func() {
		for range sink {
		}
	}()
}

func TestPlaybackFinishes(t *testing.T) {
	sink := make(chan []byte)
	drain(sink)
	defer close(sink)
	spk := &fakeSpeaker{}
	var rec recorder

	pb := startPlayback(context.Background(), player.StreamRequest{Seek: 10 * time.Second, Volume: 1}, packets(50, nil), sink, spk, rec.handlers())

	require.Eventually(t, func() bool { return rec.finished.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, rec.started.Load())
	assert.NoError(t, rec.error())
	assert.Equal(t, 11*time.Second, pb.Position())
	pb.Stop()
	assert.False(t, spk.last())
}

func TestPlaybackSourceError(t *testing.T) {
	sink := make(chan []byte)
	drain(sink)
	defer close(sink)
	var rec recorder
	boom := errors.New("boom")

	startPlayback(context.Background(), player.StreamRequest{Volume: 1}, packets(0, boom), sink, &fakeSpeaker{}, rec.handlers())

	require.Eventually(t, func() bool { return rec.error() != nil }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, rec.error(), boom)
	assert.EqualValues(t, 0, rec.started.Load())
	assert.EqualValues(t, 0, rec.finished.Load())
}

func TestPlaybackStopIsSilent(t *testing.T) {
	sink := make(chan []byte) // never read
	var rec recorder

	pb := startPlayback(context.Background(), player.StreamRequest{Volume: 1}, packets(10, nil), sink, &fakeSpeaker{}, rec.handlers())
	pb.Stop()
	pb.Stop()

	assert.EqualValues(t, 0, rec.finished.Load())
	assert.NoError(t, rec.error())
	assert.Zero(t, pb.Position())
}

func TestPlaybackPause(t *testing.T) {
	sink := make(chan []byte)
	spk := &fakeSpeaker{}
	var rec recorder
	gate := make(chan struct{})

	src := func(ctx context.Context, _ func() float64, emit func([]byte) error) error {
		for i := 0; ; i++ {
			if i == 5 {
				<-gate
			}
			if err := emit([]byte{1}); err != nil {
				return err
			}
		}
	}
	pb := startPlayback(context.Background(), player.StreamRequest{Volume: 1}, src, sink, spk, rec.handlers())
	defer pb.Stop()

	for range 5 {
		<-sink
	}
	pb.Pause()
	close(gate)
	// at most one packet was already past the gate
	select {
	case <-sink:
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-sink:
		t.Fatal("packet sent while paused")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, spk.last())
	paused := pb.Position()

	pb.Resume()
	<-sink
	assert.Greater(t, pb.Position(), paused-frameTime)
	assert.Eventually(t, spk.last, time.Second, 5*time.Millisecond)
}

func TestPlaybackVolume(t *testing.T) {
	sink := make(chan []byte)
	var seen atomic.Uint64
	src := func(ctx context.Context, gain func() float64, emit func([]byte) error) error {
		for {
			seen.Store(uint64(gain() * 100))
			if err := emit([]byte{1}); err != nil {
				return err
			}
		}
	}
	pb := startPlayback(context.Background(), player.StreamRequest{Volume: 0.5}, src, sink, &fakeSpeaker{}, player.StreamHandlers{})
	defer pb.Stop()

	<-sink
	pb.SetVolume(1.5)
	assert.Eventually(t, func() bool {
		select {
		case <-sink:
		default:
		}
		return seen.Load() == 150
	}, time.Second, time.Millisecond)

	pb.SetVolume(-1)
	assert.Zero(t, pb.gain())
}

func TestScaleS16(t *testing.T) {
	samples := []int16{1000, -1000, 30000, -30000}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	scaleS16(buf, 2)
	got := make([]int16, len(samples))
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	assert.Equal(t, []int16{2000, -2000, 32767, -32768}, got)

	scaleS16(buf, 0)
	assert.Equal(t, make([]byte, len(buf)), buf)
}

func TestCanSpeak(t *testing.T) {
	tests := []struct {
		name  string
		perms int64
		want  bool
	}{
		{"connect and speak", discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak, true},
		{"connect only", discordgo.PermissionVoiceConnect, false},
		{"speak only", discordgo.PermissionVoiceSpeak, false},
		{"administrator", discordgo.PermissionAdministrator, true},
		{"none", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canSpeak(tt.perms))
		})
	}
}
