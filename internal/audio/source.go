package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrMicrophoneUnavailable marks every failure to resolve a usable input.
var ErrMicrophoneUnavailable = errors.New("microphone unavailable")

// Source opens captures on the configured input, falling back as configured.
type Source struct {
	input    string
	fallback string
	logger   *slog.Logger

	devices func(context.Context) ([]Device, error)
	start   func(context.Context, Device, *slog.Logger) (*Capture, error)
}

// NewSource returns a Pulse-backed source for the input/fallback preferences.
func NewSource(input string, fallback string, logger *slog.Logger) *Source {
	return &Source{
		input:    input,
		fallback: fallback,
		logger:   logger,
		devices:  ListDevices,
		start:    StartCapture,
	}
}

// Select resolves the device a capture would use right now.
func (s *Source) Select(ctx context.Context) (Selection, error) {
	devices, err := s.devices(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	selection, err := Choose(devices, s.input, s.fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	return selection, nil
}

// CheckMicrophone succeeds when an unmuted, available input resolves.
func (s *Source) CheckMicrophone(ctx context.Context) error {
	_, err := s.Select(ctx)
	return err
}

// Open starts a capture on the selected device.
func (s *Source) Open(ctx context.Context) (*Capture, error) {
	selection, err := s.Select(ctx)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && s.logger != nil {
		s.logger.Warn(selection.Warning)
	}
	if s.logger != nil {
		s.logger.Debug("audio capture starting", "device", selection.Device.String())
	}
	return s.start(ctx, selection.Device, s.logger)
}
