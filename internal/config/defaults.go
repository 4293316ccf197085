package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Recognizer: RecognizerConfig{
			Endpoint:          "wss://api.deepgram.com/v1/listen",
			Model:             "nova-3",
			APIKeyEnv:         "DEEPGRAM_API_KEY",
			NoSpeechTimeoutMS: 8000,
			FinalizeTimeoutMS: 2000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Defaults: DefaultsConfig{
			Language:    "en-US",
			Continuous:  false,
			Punctuation: true,
		},
		Status: StatusConfig{
			ErrorMS:   3000,
			SuccessMS: 2000,
			RestartMS: 100,
		},
		Transcript: TranscriptConfig{Restore: true},
		Clipboard:  CommandConfig{},
		Feedback: FeedbackConfig{
			Backend:   BackendGRPC,
			GRPC:      "127.0.0.1:50061",
			Listen:    "127.0.0.1:50061",
			TimeoutMS: 30000,
			OpenAI: OpenAIConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o-mini",
				APIKeyEnv: "OPENAI_API_KEY",
			},
		},
		Popup: PopupConfig{Addr: "127.0.0.1:7373"},
		Notify: NotifyConfig{
			Enable:    false,
			AppName:   "voicepad",
			TimeoutMS: 3000,
		},
		Cues: CuesConfig{Enable: false},
	}
}
