package app

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rbright/voicepad/internal/audio"
	"github.com/rbright/voicepad/internal/config"
)

func (r Runner) commandDevices(ctx context.Context, cfg config.AudioConfig) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	selection, err := audio.Choose(devices, cfg.Input, cfg.Fallback)
	writeDeviceTable(r.Stdout, devices, selection.Device.ID)
	switch {
	case err != nil:
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	case selection.Warning != "":
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
	}
	return 0
}

// writeDeviceTable lists devices with "*" on the default source and ">" on
// the one dictation would record from.
func writeDeviceTable(w io.Writer, devices []audio.Device, selectedID string) {
	rows := make([][]string, 0, len(devices))
	for _, device := range devices {
		rows = append(rows, []string{
			deviceMarks(device, selectedID),
			device.ID,
			device.Description,
			deviceKind(device),
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "ID", "DESCRIPTION", "KIND", "STATE", "AVAILABLE", "MUTED").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}

func deviceMarks(device audio.Device, selectedID string) string {
	marks := ""
	if device.ID != "" && device.ID == selectedID {
		marks += ">"
	}
	if device.Default {
		marks += "*"
	}
	return marks
}

func deviceKind(device audio.Device) string {
	if device.Monitor {
		return "monitor"
	}
	return "input"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
