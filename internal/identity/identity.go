// Package identity issues the identifiers that stamp and filter list
// updates: a client ID persisted across restarts and a session ID unique to
// one running process.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const sessionIDLength = 7

const sessionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Identity carries the two identifiers injected into the reconciler and the
// presence broadcaster. ClientID marks who last touched a task; SessionID
// distinguishes concurrent tabs/processes so a client can ignore echoes of
// its own presence broadcasts.
type Identity struct {
	ClientID  string
	SessionID string
}

// New loads (or creates) the persistent client ID under dir and pairs it
// with a fresh session ID.
func New(dir string) (Identity, error) {
	clientID, err := LoadClientID(dir)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ClientID: clientID, SessionID: NewSessionID()}, nil
}

type clientIDFile struct {
	ClientID string `json:"clientId"`
}

// LoadClientID reads the persisted client ID from dir, generating and
// persisting a new one when none exists yet. The ID is stable across
// restarts for the same data directory.
func LoadClientID(dir string) (string, error) {
	path := filepath.Join(dir, "client-id.json")
	b, err := os.ReadFile(path)
	if err == nil {
		var f clientIDFile
		if err := json.Unmarshal(b, &f); err == nil && f.ClientID != "" {
			return f.ClientID, nil
		}
		// Corrupt file: fall through and regenerate.
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read client id: %w", err)
	}

	id := uuid.NewString()
	data, err := json.MarshalIndent(clientIDFile{ClientID: id}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal client id: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write client id: %w", err)
	}
	return id, nil
}

// NewSessionID returns a random short identifier regenerated on every
// process start. The 36^7 space is good enough to tell concurrent sessions
// apart; it is not cryptographic.
func NewSessionID() string {
	b := make([]byte, sessionIDLength)
	for i := range b {
		b[i] = sessionAlphabet[rand.IntN(len(sessionAlphabet))]
	}
	return string(b)
}
