package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// parseCommand reads a command field written either as a shell-like string
// ("wl-copy --trim-newline") or as an argv array (["wl-copy", "--trim-newline"]).
func parseCommand(raw json.RawMessage) (CommandConfig, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return CommandConfig{}, nil
	}

	if raw[0] == '[' {
		var argv []string
		if err := json.Unmarshal(raw, &argv); err != nil {
			return CommandConfig{}, fmt.Errorf("decode argv array: %w", err)
		}
		if len(argv) > 0 && strings.TrimSpace(argv[0]) == "" {
			return CommandConfig{}, errors.New("argv array has an empty program name")
		}
		return CommandConfig{Raw: joinCommand(argv), Argv: argv}, nil
	}

	var line string
	if err := json.Unmarshal(raw, &line); err != nil {
		return CommandConfig{}, errors.New("must be a string or an array of strings")
	}
	argv, err := splitCommand(line)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: line, Argv: argv}, nil
}

// joinCommand renders argv as a line splitCommand reads back unchanged.
func joinCommand(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, arg := range argv {
		if arg != "" && !strings.ContainsFunc(arg, needsQuote) {
			parts = append(parts, arg)
			continue
		}
		parts = append(parts, "'"+strings.ReplaceAll(arg, "'", `'"'"'`)+"'")
	}
	return strings.Join(parts, " ")
}

func needsQuote(r rune) bool {
	return unicode.IsSpace(r) || r == '\'' || r == '"' || r == '\\'
}

// splitCommand splits a shell-like line into argv. Quotes group words, a
// backslash outside single quotes escapes the next rune, and nothing is expanded.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range input {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("unterminated escape sequence in %q", input)
	case quote != 0:
		return nil, fmt.Errorf("unterminated %c quote in %q", quote, input)
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}
