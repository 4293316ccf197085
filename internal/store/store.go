// Package store persists small JSON records in two scopes: account-synced
// settings and device-local transcript state.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// KeySettings holds the settings record in the sync scope.
	KeySettings = "transcriber_settings"
	// KeyTranscript holds the accumulated transcript in the local scope.
	KeyTranscript = "last_transcription"
	// KeyUpdated holds the unix-millisecond time of the last transcript write.
	KeyUpdated = "last_updated"
)

// Record is a partial key/value document.
type Record map[string]json.RawMessage

// Store is an asynchronous-style key/value capability. Get returns only the
// requested keys that exist; Set merges the given keys into the document.
type Store interface {
	Get(ctx context.Context, keys ...string) (Record, error)
	Set(ctx context.Context, rec Record) error
}

// Values encodes plain Go values into a Record.
func Values(values map[string]any) (Record, error) {
	rec := make(Record, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		rec[key] = raw
	}
	return rec, nil
}

// Lookup decodes key from rec into dst and reports whether the key was present.
func Lookup(rec Record, key string, dst any) (bool, error) {
	raw, ok := rec[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// GetString reads one string key, returning "" when absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var value string
	if _, err := Lookup(rec, key, &value); err != nil {
		return "", err
	}
	return value, nil
}

func pick(doc Record, keys []string) Record {
	out := make(Record, len(keys))
	for _, key := range keys {
		if raw, ok := doc[key]; ok {
			out[key] = append(json.RawMessage(nil), raw...)
		}
	}
	return out
}
