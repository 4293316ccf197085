package deepgram

import (
	"encoding/json"
	"strings"
)

// response is the subset of a live transcription message voicepad reads.
type response struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type update struct {
	Transcript  string
	IsFinal     bool
	SpeechFinal bool
}

// decodeUpdate parses one text frame. ok is false for non-Results messages.
func decodeUpdate(data []byte) (update, bool, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return update{}, false, err
	}
	if resp.Type != "" && resp.Type != "Results" {
		return update{}, false, nil
	}

	transcript := ""
	if len(resp.Channel.Alternatives) > 0 {
		transcript = resp.Channel.Alternatives[0].Transcript
	}
	return update{
		Transcript:  strings.TrimSpace(transcript),
		IsFinal:     resp.IsFinal,
		SpeechFinal: resp.SpeechFinal,
	}, true, nil
}

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)
