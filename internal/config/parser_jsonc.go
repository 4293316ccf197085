package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Audio      *jsoncAudio      `json:"audio"`
	Defaults   *jsoncDefaults   `json:"defaults"`
	Status     *jsoncStatus     `json:"status"`
	Transcript *jsoncTranscript `json:"transcript"`
	Export     *jsoncExport     `json:"export"`
	Feedback   *jsoncFeedback   `json:"feedback"`
	Popup      *jsoncPopup      `json:"popup"`
	Notify     *jsoncNotify     `json:"notify"`
	Cues       *jsoncCues       `json:"cues"`

	ClipboardCmd json.RawMessage `json:"clipboard_cmd"`
}

type jsoncRecognizer struct {
	Endpoint          *string `json:"endpoint"`
	Model             *string `json:"model"`
	APIKeyEnv         *string `json:"api_key_env"`
	NoSpeechTimeoutMS *int    `json:"no_speech_timeout_ms"`
	FinalizeTimeoutMS *int    `json:"finalize_timeout_ms"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncDefaults struct {
	Language    *string `json:"language"`
	Continuous  *bool   `json:"continuous"`
	Punctuation *bool   `json:"punctuation"`
}

type jsoncStatus struct {
	ErrorMS   *int `json:"error_ms"`
	SuccessMS *int `json:"success_ms"`
	RestartMS *int `json:"restart_ms"`
}

type jsoncTranscript struct {
	Restore *bool `json:"restore"`
}

type jsoncExport struct {
	Dir *string `json:"dir"`
}

type jsoncFeedback struct {
	Backend   *string      `json:"backend"`
	GRPC      *string      `json:"grpc"`
	Listen    *string      `json:"listen"`
	TimeoutMS *int         `json:"timeout_ms"`
	OpenAI    *jsoncOpenAI `json:"openai"`
}

type jsoncOpenAI struct {
	BaseURL   *string `json:"base_url"`
	Model     *string `json:"model"`
	APIKeyEnv *string `json:"api_key_env"`
}

type jsoncPopup struct {
	Addr *string `json:"addr"`
}

type jsoncNotify struct {
	Enable    *bool   `json:"enable"`
	AppName   *string `json:"app_name"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncCues struct {
	Enable    *bool   `json:"enable"`
	StartFile *string `json:"start_file"`
	StopFile  *string `json:"stop_file"`
	ErrorFile *string `json:"error_file"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.Endpoint, r.Endpoint)
		setString(&cfg.Recognizer.Model, r.Model)
		setString(&cfg.Recognizer.APIKeyEnv, r.APIKeyEnv)
		setInt(&cfg.Recognizer.NoSpeechTimeoutMS, r.NoSpeechTimeoutMS)
		setInt(&cfg.Recognizer.FinalizeTimeoutMS, r.FinalizeTimeoutMS)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if d := payload.Defaults; d != nil {
		setString(&cfg.Defaults.Language, d.Language)
		setBool(&cfg.Defaults.Continuous, d.Continuous)
		setBool(&cfg.Defaults.Punctuation, d.Punctuation)
	}

	if s := payload.Status; s != nil {
		setInt(&cfg.Status.ErrorMS, s.ErrorMS)
		setInt(&cfg.Status.SuccessMS, s.SuccessMS)
		setInt(&cfg.Status.RestartMS, s.RestartMS)
	}

	if payload.Transcript != nil {
		setBool(&cfg.Transcript.Restore, payload.Transcript.Restore)
	}

	if payload.Export != nil {
		setString(&cfg.Export.Dir, payload.Export.Dir)
	}

	if f := payload.Feedback; f != nil {
		if f.Backend != nil {
			cfg.Feedback.Backend = strings.ToLower(strings.TrimSpace(*f.Backend))
		}
		setString(&cfg.Feedback.GRPC, f.GRPC)
		setString(&cfg.Feedback.Listen, f.Listen)
		setInt(&cfg.Feedback.TimeoutMS, f.TimeoutMS)
		if o := f.OpenAI; o != nil {
			setString(&cfg.Feedback.OpenAI.BaseURL, o.BaseURL)
			setString(&cfg.Feedback.OpenAI.Model, o.Model)
			setString(&cfg.Feedback.OpenAI.APIKeyEnv, o.APIKeyEnv)
		}
	}

	if payload.Popup != nil {
		setString(&cfg.Popup.Addr, payload.Popup.Addr)
	}

	if n := payload.Notify; n != nil {
		setBool(&cfg.Notify.Enable, n.Enable)
		setString(&cfg.Notify.AppName, n.AppName)
		setInt(&cfg.Notify.TimeoutMS, n.TimeoutMS)
	}

	if c := payload.Cues; c != nil {
		setBool(&cfg.Cues.Enable, c.Enable)
		setString(&cfg.Cues.StartFile, c.StartFile)
		setString(&cfg.Cues.StopFile, c.StopFile)
		setString(&cfg.Cues.ErrorFile, c.ErrorFile)
	}

	if payload.ClipboardCmd != nil {
		cmd, err := parseCommand(payload.ClipboardCmd)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = cmd
	}

	return nil
}

// normalizeJSONC blanks comments and trailing commas so encoding/json can
// decode the result. Removed bytes become spaces, which keeps decode error
// offsets pointing at the original line and column.
func normalizeJSONC(content string) (string, error) {
	blanked, err := blankComments(content)
	if err != nil {
		return "", err
	}
	return blankTrailingCommas(blanked), nil
}

func blankComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		rest := content[i:]
		switch {
		case rest[0] == '"':
			i = copyString(content, i, &out)
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexAny(rest, "\r\n")
			if end < 0 {
				end = len(rest)
			}
			out.WriteString(blank(rest[:end]))
			i += end
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				line, col := offsetToLineCol(content, int64(i+1))
				return "", fmt.Errorf("line %d column %d: unterminated block comment in JSONC", line, col)
			}
			out.WriteString(blank(rest[:end+4]))
			i += end + 4
		default:
			out.WriteByte(rest[0])
			i++
		}
	}
	return out.String(), nil
}

func blankTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); {
		ch := content[i]
		if ch == '"' {
			i = copyString(content, i, &out)
			continue
		}
		if ch == ',' {
			next := strings.TrimLeft(content[i+1:], " \t\r\n")
			if next != "" && (next[0] == '}' || next[0] == ']') {
				ch = ' '
			}
		}
		out.WriteByte(ch)
		i++
	}
	return out.String()
}

// copyString writes the string literal opening at content[start] to out and
// returns the index just past its closing quote.
func copyString(content string, start int, out *strings.Builder) int {
	out.WriteByte('"')
	for i := start + 1; i < len(content); i++ {
		out.WriteByte(content[i])
		switch content[i] {
		case '\\':
			if i+1 < len(content) {
				i++
				out.WriteByte(content[i])
			}
		case '"':
			return i + 1
		}
	}
	return len(content)
}

// blank replaces every byte except line breaks and tabs with a space.
func blank(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch != '\n' && ch != '\r' && ch != '\t' {
			b[i] = ' '
		}
	}
	return string(b)
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
