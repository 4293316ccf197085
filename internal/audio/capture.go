package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture rate streamed to the recognizer.
	SampleRate = 16000

	// frameBytes is 20ms of 16 kHz mono s16le.
	frameBytes = 640
	// frameBacklog is how many frames (about 2.5s) queue before the oldest drop.
	frameBacklog = 128
)

// Stats summarizes one capture. Frames counts every frame queued, including
// the ones later dropped because the consumer fell behind.
type Stats struct {
	Bytes   int64
	Frames  int64
	Dropped int64
}

// Capture streams fixed-size PCM frames from one Pulse source. The Pulse
// callback never blocks on a slow consumer.
type Capture struct {
	device Device
	logger *slog.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	done   chan struct{}

	mu       sync.Mutex
	framer   framer
	stopped  bool
	inflight sync.WaitGroup

	bytes   atomic.Int64
	queued  atomic.Int64
	dropped atomic.Int64
}

func newCapture(device Device, logger *slog.Logger, backlog int) *Capture {
	return &Capture{
		device: device,
		logger: logger,
		frames: make(chan []byte, backlog),
		done:   make(chan struct{}),
	}
}

// StartCapture opens a 16 kHz mono s16le record stream on device. The
// capture stops when ctx is done.
func StartCapture(ctx context.Context, device Device, logger *slog.Logger) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	capture := newCapture(device, logger, frameBacklog)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(frameBytes),
		pulse.RecordMediaName(appName+" dictation"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.done:
		}
	}()

	return capture, nil
}

// Device returns the capture source.
func (c *Capture) Device() Device {
	return c.device
}

// Chunks returns the PCM stream as frameBytes slices. The final slice may be
// shorter. The channel closes after Stop.
func (c *Capture) Chunks() <-chan []byte {
	return c.frames
}

func (c *Capture) Stats() Stats {
	return Stats{Bytes: c.bytes.Load(), Frames: c.queued.Load(), Dropped: c.dropped.Load()}
}

// Stop halts the stream, queues the residual partial frame, and closes
// Chunks. It is idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	if rest := c.framer.flush(); len(rest) > 0 {
		c.deliver(rest)
	}
	close(c.frames)

	if c.logger != nil {
		stats := c.Stats()
		c.logger.Debug("audio capture stopped",
			"device", c.device.ID,
			"bytes", stats.Bytes,
			"frames", stats.Frames,
			"dropped", stats.Dropped,
		)
	}
	return nil
}

// Close is Stop without the error.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse buffers of any size.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)
	ready := c.framer.push(buffer)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))
	for _, frame := range ready {
		c.deliver(frame)
	}
	return len(buffer), nil
}

// deliver queues frame, discarding the oldest queued frame when full. Only
// the Pulse callback and Stop call it, never concurrently.
func (c *Capture) deliver(frame []byte) {
	c.queued.Add(1)
	for {
		select {
		case c.frames <- frame:
			return
		default:
		}
		select {
		case <-c.frames:
			c.dropped.Add(1)
		default:
		}
	}
}

// framer cuts a byte stream into frameBytes slices and keeps the remainder.
type framer struct {
	pending []byte
}

func (f *framer) push(b []byte) [][]byte {
	f.pending = append(f.pending, b...)
	var out [][]byte
	for len(f.pending) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, f.pending)
		f.pending = f.pending[frameBytes:]
		out = append(out, frame)
	}
	return out
}

func (f *framer) flush() []byte {
	rest := f.pending
	f.pending = nil
	return rest
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
