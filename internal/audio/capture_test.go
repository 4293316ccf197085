package audio

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcm(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed + byte(i%251)
	}
	return out
}

func TestFramerSplitsAcrossPushes(t *testing.T) {
	var f framer
	input := pcm(frameBytes*2+100, 0)

	require.Empty(t, f.push(input[:300]))
	frames := f.push(input[300 : frameBytes+10])
	require.Len(t, frames, 1)
	require.Equal(t, input[:frameBytes], frames[0])

	frames = f.push(input[frameBytes+10:])
	require.Len(t, frames, 1)
	require.Equal(t, input[frameBytes:2*frameBytes], frames[0])

	require.Equal(t, input[2*frameBytes:], f.flush())
	require.Empty(t, f.flush())
}

func TestCaptureOnPCMQueuesFramesAndStopFlushesRemainder(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1"}, nil, 8)
	input := pcm(frameBytes+111, 7)

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)

	require.Equal(t, input[:frameBytes], <-capture.Chunks())

	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())

	rest, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Equal(t, input[frameBytes:], rest)
	_, ok = <-capture.Chunks()
	require.False(t, ok)

	require.Equal(t, Stats{Bytes: int64(len(input)), Frames: 2}, capture.Stats())
}

func TestCaptureDropsOldestFramesWhenConsumerLags(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1"}, nil, 2)

	for seed := byte(1); seed <= 4; seed++ {
		_, err := capture.onPCM(bytes.Repeat([]byte{seed}, frameBytes))
		require.NoError(t, err)
	}
	capture.Close()

	var got []byte
	for frame := range capture.Chunks() {
		got = append(got, frame[0])
	}
	require.Equal(t, []byte{3, 4}, got)
	require.Equal(t, Stats{Bytes: 4 * frameBytes, Frames: 4, Dropped: 2}, capture.Stats())
}

func TestCaptureOnPCMReturnsEOFAfterStop(t *testing.T) {
	capture := newCapture(Device{}, nil, 1)
	capture.Close()

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, capture.Stats().Bytes)
}

func TestCaptureOnPCMIgnoresEmptyBuffers(t *testing.T) {
	capture := newCapture(Device{}, nil, 1)
	n, err := capture.onPCM(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCaptureStopLogsStats(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	capture := newCapture(Device{ID: "alsa_input.usb"}, logger, 4)

	_, err := capture.onPCM(pcm(frameBytes, 0))
	require.NoError(t, err)
	capture.Close()

	require.Contains(t, logs.String(), `"msg":"audio capture stopped"`)
	require.Contains(t, logs.String(), `"device":"alsa_input.usb"`)
	require.Contains(t, logs.String(), `"frames":1`)
	require.Equal(t, "alsa_input.usb", capture.Device().ID)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	var got []byte
	writer := writerFunc(func(b []byte) (int, error) {
		got = b
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, got)
}
