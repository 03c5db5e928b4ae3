package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	sampleRate   = 48000
	channels     = 2
	frameSamples = 960 // 20 ms per channel
	frameTime    = 20 * time.Millisecond
	bitRate      = 160_000
)

var logOnce sync.Once

// transcoder decodes any ffmpeg-readable input and re-encodes it as 20 ms
// Opus packets at 48 kHz stereo.
type transcoder struct {
	in        *astiav.FormatContext
	dec, enc  *astiav.CodecContext
	streamIdx int
	pkt       *astiav.Packet
	frame     *astiav.Frame
	resampled *astiav.Frame
	swr       *astiav.SoftwareResampleContext
	fifo      *astiav.AudioFifo
	pts       int64

	gain func() float64
	emit func([]byte) error
}

// transcode streams url from seek until EOF or ctx ends, calling emit with
// each Opus packet. gain is sampled once per frame.
func transcode(ctx context.Context, url string, seek time.Duration, gain func() float64, emit func([]byte) error) error {
	logOnce.Do(func() { astiav.SetLogLevel(astiav.LogLevelFatal) })

	t := &transcoder{
		pkt:       astiav.AllocPacket(),
		frame:     astiav.AllocFrame(),
		resampled: astiav.AllocFrame(),
		gain:      gain,
		emit:      emit,
	}
	defer t.close()

	if err := t.openInput(url); err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	if err := t.setupDecoder(); err != nil {
		return fmt.Errorf("setup decoder: %w", err)
	}
	if err := t.setupEncoder(); err != nil {
		return fmt.Errorf("setup encoder: %w", err)
	}
	if seek > 0 {
		t.seek(seek)
	}
	return t.run(ctx)
}

func (t *transcoder) openInput(url string) error {
	t.in = astiav.AllocFormatContext()
	if t.in == nil {
		return errors.New("alloc format context")
	}
	var opts *astiav.Dictionary
	if strings.HasPrefix(url, "http") {
		opts = astiav.NewDictionary()
		defer opts.Free()
		_ = opts.Set("reconnect", "1", 0)
		_ = opts.Set("reconnect_streamed", "1", 0)
		_ = opts.Set("reconnect_delay_max", "5", 0)
		_ = opts.Set("timeout", "30000000", 0)
	}
	if err := t.in.OpenInput(url, nil, opts); err != nil {
		t.in.Free()
		t.in = nil
		return err
	}
	if err := t.in.FindStreamInfo(nil); err != nil {
		return err
	}
	t.streamIdx = -1
	for _, s := range t.in.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.streamIdx = s.Index()
			break
		}
	}
	if t.streamIdx < 0 {
		return errors.New("no audio stream found")
	}
	return nil
}

func (t *transcoder) setupDecoder() error {
	p := t.in.Streams()[t.streamIdx].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.dec = astiav.AllocCodecContext(d)
	if t.dec == nil {
		return errors.New("alloc decoder context")
	}
	if err := p.ToCodecContext(t.dec); err != nil {
		return err
	}
	return t.dec.Open(d, nil)
}

func (t *transcoder) setupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("opus encoder not found (check ffmpeg installation)")
	}
	t.enc = astiav.AllocCodecContext(e)
	if t.enc == nil {
		return errors.New("alloc encoder context")
	}
	t.enc.SetSampleRate(sampleRate)
	t.enc.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.enc.SetSampleFormat(astiav.SampleFormatS16)
	t.enc.SetBitRate(bitRate)
	t.enc.SetTimeBase(astiav.NewRational(1, sampleRate))

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("frame_duration", "20", 0)
	_ = opts.Set("application", "audio", 0)
	if err := t.enc.Open(e, opts); err != nil {
		return err
	}

	t.swr = astiav.AllocSoftwareResampleContext()
	if t.swr == nil {
		return errors.New("alloc resampler")
	}
	t.fifo = astiav.AllocAudioFifo(t.enc.SampleFormat(), t.enc.ChannelLayout().Channels(), frameSamples*2)
	if t.fifo == nil {
		return errors.New("alloc fifo")
	}
	return nil
}

// seek jumps to the nearest earlier keyframe; failures play from the start.
func (t *transcoder) seek(d time.Duration) {
	tb := t.in.Streams()[t.streamIdx].TimeBase()
	ts := astiav.RescaleQ(d.Microseconds(), astiav.NewRational(1, 1_000_000), tb)
	if err := t.in.SeekFrame(t.streamIdx, ts, astiav.SeekFlags(astiav.SeekFlagBackward)); err != nil {
		return
	}
	t.pts = d.Milliseconds() * sampleRate / 1000
}

func (t *transcoder) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.pkt.Unref()
		if err := t.in.ReadFrame(t.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if t.pkt.StreamIndex() != t.streamIdx {
			continue
		}
		if err := t.dec.SendPacket(t.pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
			return fmt.Errorf("send packet: %w", err)
		}
		if err := t.drainDecoder(); err != nil {
			return err
		}
	}

	_ = t.dec.SendPacket(nil)
	if err := t.drainDecoder(); err != nil {
		return err
	}
	if err := t.processFifo(true); err != nil {
		return err
	}
	if err := t.enc.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("flush encoder: %w", err)
	}
	return t.receivePackets()
}

func (t *transcoder) drainDecoder() error {
	for {
		if err := t.dec.ReceiveFrame(t.frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}
		err := t.pushToFifo()
		t.frame.Unref()
		if err != nil {
			return err
		}
	}
}

func (t *transcoder) prepareFrame(nb int) {
	t.resampled.Unref()
	t.resampled.SetChannelLayout(t.enc.ChannelLayout())
	t.resampled.SetSampleFormat(t.enc.SampleFormat())
	t.resampled.SetSampleRate(t.enc.SampleRate())
	t.resampled.SetNbSamples(nb)
}

func (t *transcoder) pushToFifo() error {
	nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, t.enc.SampleRate())))
	if nb <= 0 {
		return nil
	}
	t.prepareFrame(nb)
	if err := t.resampled.AllocBuffer(0); err != nil {
		return fmt.Errorf("alloc resample buffer: %w", err)
	}
	if err := t.swr.ConvertFrame(t.frame, t.resampled); err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	if _, err := t.fifo.Write(t.resampled); err != nil {
		return fmt.Errorf("fifo write: %w", err)
	}
	return t.processFifo(false)
}

// processFifo encodes every full frame in the fifo, and the remainder when
// drain is set.
func (t *transcoder) processFifo(drain bool) error {
	for {
		n := frameSamples
		if size := t.fifo.Size(); size < n {
			if !drain || size == 0 {
				return nil
			}
			n = size
		}
		t.prepareFrame(n)
		if err := t.resampled.AllocBuffer(0); err != nil {
			return fmt.Errorf("alloc frame buffer: %w", err)
		}
		if _, err := t.fifo.Read(t.resampled); err != nil {
			return fmt.Errorf("fifo read: %w", err)
		}
		if g := t.gain(); g != 1 {
			data, err := t.resampled.Data().Bytes(1)
			if err == nil {
				scaleS16(data[:min(len(data), n*channels*2)], g)
				_ = t.resampled.Data().SetBytes(data, 1)
			}
		}
		t.resampled.SetPts(t.pts)
		t.pts += int64(n)
		if err := t.enc.SendFrame(t.resampled); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if err := t.receivePackets(); err != nil {
			return err
		}
	}
}

func (t *transcoder) receivePackets() error {
	for {
		t.pkt.Unref()
		if err := t.enc.ReceivePacket(t.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receive packet: %w", err)
		}
		d := t.pkt.Data()
		out := make([]byte, len(d))
		copy(out, d)
		if err := t.emit(out); err != nil {
			return err
		}
	}
}

func (t *transcoder) close() {
	if t.fifo != nil {
		t.fifo.Free()
	}
	if t.swr != nil {
		t.swr.Free()
	}
	if t.resampled != nil {
		t.resampled.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.pkt != nil {
		t.pkt.Free()
	}
	if t.dec != nil {
		t.dec.Free()
	}
	if t.enc != nil {
		t.enc.Free()
	}
	if t.in != nil {
		t.in.CloseInput()
		t.in.Free()
	}
}

// scaleS16 multiplies interleaved little-endian s16 samples by g, clipping.
func scaleS16(data []byte, g float64) {
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		v := int32(float64(s) * g)
		v = max(-32768, min(v, 32767))
		data[i] = byte(v)
		data[i+1] = byte(uint16(v) >> 8)
	}
}
