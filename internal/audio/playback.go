package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonroyaalmerol/kumaquiz/internal/player"
)

const (
	frameBuffer = 50 // one second of Opus packets
	sendTimeout = 2 * time.Second
)

var errSendTimeout = errors.New("opus send timeout")

// sourceFunc produces Opus packets until the input ends.
type sourceFunc func(ctx context.Context, gain func() float64, emit func([]byte) error) error

type speaker interface {
	Speaking(b bool) error
}

// playback pumps packets from a source into the voice connection at the
// pace the connection accepts them.
type playback struct {
	seek   time.Duration
	volume atomic.Uint64 // math.Float64bits
	sent   atomic.Int64

	mu     sync.Mutex
	paused bool
	resume chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func startPlayback(
	ctx context.Context,
	req player.StreamRequest,
	src sourceFunc,
	sink chan<- []byte,
	spk speaker,
	h player.StreamHandlers,
) *playback {
	ctx, cancel := context.WithCancel(ctx)
	p := &playback{seek: req.Seek, cancel: cancel, done: make(chan struct{})}
	p.SetVolume(req.Volume)

	frames := make(chan []byte, frameBuffer)
	var srcErr error
	go func() {
		defer close(frames)
		srcErr = src(ctx, p.gain, func(pkt []byte) error {
			select {
			case frames <- pkt:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	go func() {
		defer close(p.done)
		defer func() { _ = spk.Speaking(false) }()
		_ = spk.Speaking(true)
		started := false
		for {
			if g := p.gate(); g != nil {
				_ = spk.Speaking(false)
				select {
				case <-g:
					_ = spk.Speaking(true)
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-frames:
				if !ok {
					// frames is closed, so srcErr is settled
					if ctx.Err() != nil {
						return
					}
					if srcErr != nil && !errors.Is(srcErr, context.Canceled) {
						call1(h.OnError, srcErr)
					} else {
						call0(h.OnFinish)
					}
					return
				}
				select {
				case sink <- pkt:
				case <-ctx.Done():
					return
				case <-time.After(sendTimeout):
					call1(h.OnError, errSendTimeout)
					return
				}
				p.sent.Add(1)
				if !started {
					started = true
					call0(h.OnStart)
				}
			}
		}
	}()
	return p
}

func call0(f func()) {
	if f != nil {
		f()
	}
}

func call1(f func(error), err error) {
	if f != nil {
		f(err)
	}
}

func (p *playback) gate() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return nil
	}
	return p.resume
}

func (p *playback) gain() float64 {
	return math.Float64frombits(p.volume.Load())
}

func (p *playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.resume = make(chan struct{})
	}
}

func (p *playback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		close(p.resume)
	}
}

func (p *playback) SetVolume(v float64) {
	p.volume.Store(math.Float64bits(max(0, v)))
}

// Position counts sent packets on top of the start offset.
func (p *playback) Position() time.Duration {
	return p.seek + time.Duration(p.sent.Load())*frameTime
}

// Stop ends the stream without invoking any handler.
func (p *playback) Stop() {
	p.cancel()
	<-p.done
}
