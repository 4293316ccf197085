package audio

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeSource(devices []Device, listErr error) (*Source, *[]Device) {
	var started []Device
	s := NewSource("usb", "", nil)
	s.devices = func(context.Context) ([]Device, error) { return devices, listErr }
	s.start = func(_ context.Context, d Device, logger *slog.Logger) (*Capture, error) {
		started = append(started, d)
		return newCapture(d, logger, 1), nil
	}
	return s, &started
}

func TestSourceCheckMicrophoneGranted(t *testing.T) {
	s, _ := fakeSource([]Device{{ID: "usb", Available: true, Default: true}}, nil)
	require.NoError(t, s.CheckMicrophone(context.Background()))
}

func TestSourceCheckMicrophoneDeniedWhenMuted(t *testing.T) {
	s, _ := fakeSource([]Device{{ID: "usb", Available: true, Muted: true, Default: true}}, nil)
	err := s.CheckMicrophone(context.Background())
	require.ErrorIs(t, err, ErrMicrophoneUnavailable)
	require.Contains(t, err.Error(), "muted")
}

func TestSourceCheckMicrophoneDeniedWhenPulseFails(t *testing.T) {
	s, _ := fakeSource(nil, errors.New("connect pulse server: refused"))
	err := s.CheckMicrophone(context.Background())
	require.ErrorIs(t, err, ErrMicrophoneUnavailable)
	require.Contains(t, err.Error(), "refused")
}

func TestSourceOpenStartsOnSelectedDevice(t *testing.T) {
	s, started := fakeSource([]Device{
		{ID: "builtin", Available: true, Default: true},
		{ID: "usb", Available: true},
	}, nil)

	capture, err := s.Open(context.Background())
	require.NoError(t, err)
	require.Equal(t, "usb", capture.Device().ID)
	require.Len(t, *started, 1)
}

func TestSourceOpenPropagatesSelectionError(t *testing.T) {
	s, started := fakeSource([]Device{{ID: "builtin", Available: true, Default: true}}, nil)
	_, err := s.Open(context.Background())
	require.ErrorIs(t, err, ErrMicrophoneUnavailable)
	require.Empty(t, *started)
}
