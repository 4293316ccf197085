// Package cli parses voicepad command lines.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandOpen          Command = "open"
	CommandPopup         Command = "popup"
	CommandStart         Command = "start"
	CommandStop          Command = "stop"
	CommandClose         Command = "close"
	CommandStatus        Command = "status"
	CommandClear         Command = "clear"
	CommandCopy          Command = "copy"
	CommandSave          Command = "save"
	CommandTranscript    Command = "transcript"
	CommandSettings      Command = "settings"
	CommandFeedback      Command = "feedback"
	CommandServeFeedback Command = "serve-feedback"
	CommandDevices       Command = "devices"
	CommandDoctor        Command = "doctor"
	CommandVersion       Command = "version"
	CommandHelp          Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandOpen:          {},
	CommandPopup:         {},
	CommandStart:         {},
	CommandStop:          {},
	CommandClose:         {},
	CommandStatus:        {},
	CommandClear:         {},
	CommandCopy:          {},
	CommandSave:          {},
	CommandTranscript:    {},
	CommandSettings:      {},
	CommandFeedback:      {},
	CommandServeFeedback: {},
	CommandDevices:       {},
	CommandDoctor:        {},
	CommandVersion:       {},
	CommandHelp:          {},
}

// Parsed is one resolved invocation. Command-specific flags are only
// accepted after their command.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// Args are positional arguments after the command (settings KEY VALUE).
	Args []string
	// Start begins recording as soon as the popup opens.
	Start bool
	// Addr overrides the popup or feedback listen address.
	Addr string
	// Context is free-form feedback context.
	Context string
	// HTML prints the feedback card as markup.
	HTML bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if err := parseCommandArgs(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseCommandArgs(parsed *Parsed, rest []string) error {
	value := func(i int, flag string) (string, error) {
		if i+1 >= len(rest) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return rest[i+1], nil
	}

	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--start" && (parsed.Command == CommandOpen || parsed.Command == CommandPopup):
			parsed.Start = true
		case arg == "--addr" && (parsed.Command == CommandPopup || parsed.Command == CommandServeFeedback):
			v, err := value(i, arg)
			if err != nil {
				return err
			}
			parsed.Addr = v
			i++
		case arg == "--context" && parsed.Command == CommandFeedback:
			v, err := value(i, arg)
			if err != nil {
				return err
			}
			parsed.Context = v
			i++
		case arg == "--html" && parsed.Command == CommandFeedback:
			parsed.HTML = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag for %s: %s", parsed.Command, arg)
		case parsed.Command == CommandSettings:
			parsed.Args = append(parsed.Args, arg)
		default:
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	}

	if parsed.Command == CommandSettings && len(parsed.Args) != 0 && len(parsed.Args) != 2 {
		return errors.New("settings takes no arguments or KEY VALUE")
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Popup:
  open [--start]                 Open the terminal popup and hold the session
  popup [--addr ADDR] [--start]  Open the web popup (default 127.0.0.1:7373)

Session:
  start       Start recording in the open popup
  stop        Stop recording in the open popup
  status      Print state and the status line
  clear       Clear the transcript
  copy        Copy the transcript to the clipboard
  save        Save the transcript as transcription-<timestamp>.txt
  transcript  Print the transcript
  settings [KEY VALUE]
              Print settings, or set language, continuous, or punctuation
  close       Close the open popup

Feedback:
  feedback [--context TEXT] [--html]
              Request coaching feedback on the last transcript
  serve-feedback [--addr ADDR]
              Serve the feedback gRPC service backed by the configured model

Tools:
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voicepad/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
