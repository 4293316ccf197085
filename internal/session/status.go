package session

import "github.com/rbright/voicepad/internal/recognizer"

// StatusKind styles a status line.
type StatusKind string

const (
	StatusReady     StatusKind = "ready"
	StatusRecording StatusKind = "recording"
	StatusError     StatusKind = "error"
	StatusSuccess   StatusKind = "success"
)

// Status is the one-line message shown above the transcript.
type Status struct {
	Text string     `json:"text"`
	Kind StatusKind `json:"kind"`
}

const (
	MsgReady            = "Ready to transcribe"
	MsgRecording        = "Recording..."
	MsgUnsupported      = "Speech recognition not supported in this environment"
	MsgMicrophoneFailed = "Failed to access microphone. Please check permissions."
	MsgNoSpeech         = "No speech was detected. Please try again."
	MsgAudioCapture     = "Audio capture failed. Please check your microphone."
	MsgNotAllowed       = "Microphone access denied. Please allow microphone access."
	MsgNetwork          = "Network error occurred. Please check your connection."
	MsgNoTextToCopy     = "No text to copy"
	MsgNoTextToSave     = "No text to save"
	MsgCopied           = "Text copied to clipboard"
	MsgCopyFailed       = "Failed to copy text"
	MsgSaved            = "Transcription saved"
	MsgSaveFailed       = "Failed to save transcription"
)

// ErrorMessage maps a recognizer error code to its user-facing message.
func ErrorMessage(code recognizer.ErrorCode) string {
	switch code {
	case recognizer.CodeNoSpeech:
		return MsgNoSpeech
	case recognizer.CodeAudioCapture:
		return MsgAudioCapture
	case recognizer.CodeNotAllowed:
		return MsgNotAllowed
	case recognizer.CodeNetwork:
		return MsgNetwork
	default:
		return "Speech recognition error: " + string(code)
	}
}
