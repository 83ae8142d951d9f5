// Package snapshot serializes entity state into the deletion ledger. The
// payload is opaque to the engine; the envelope carries an explicit version
// so historical snapshots stay readable across entity schema changes.
package snapshot

import (
	jsoniter "github.com/json-iterator/go"

	ierr "github.com/vendra/vendra/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CurrentVersion is written into every new envelope
const CurrentVersion = 1

type envelope struct {
	Version int            `json:"v"`
	Data    map[string]any `json:"data"`
}

// Encode wraps the entity's row state in a versioned envelope
func Encode(fields map[string]any) ([]byte, error) {
	raw, err := json.Marshal(envelope{
		Version: CurrentVersion,
		Data:    fields,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize entity snapshot").
			Mark(ierr.ErrSystem)
	}
	return raw, nil
}

// Decode unwraps a stored snapshot, returning the row state and the envelope
// version it was written with
func Decode(raw []byte) (map[string]any, int, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, ierr.WithError(err).
			WithHint("Stored snapshot is not readable").
			Mark(ierr.ErrSystem)
	}
	return env.Data, env.Version, nil
}
