package google

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// StateValidity is how long a handshake state token stays acceptable.
// Tokens older than this are rejected even when otherwise well-formed.
const StateValidity = 15 * time.Minute

// ErrStateInvalid is returned for any state token that fails to decode,
// is missing its user, or has expired. Callers redirect with a single
// error kind and never leak the underlying decode detail.
var ErrStateInvalid = errors.New("authorization state invalid")

// State carries the initiating user's identity through the external
// redirect. It is ephemeral and never persisted; single use is not
// enforced, so idempotent re-delivery of a callback is tolerated.
type State struct {
	UserID   string `json:"uid"`
	IssuedAt int64  `json:"iat"` // unix seconds
	Nonce    string `json:"n"`
}

// EncodeState packs a fresh state token for a user.
func EncodeState(userID string, now time.Time) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload, err := json.Marshal(State{
		UserID:   userID,
		IssuedAt: now.Unix(),
		Nonce:    hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeState unpacks and validates a state token. Every failure mode
// collapses to ErrStateInvalid.
func DecodeState(raw string, now time.Time) (*State, error) {
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrStateInvalid
	}
	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, ErrStateInvalid
	}
	if st.UserID == "" {
		return nil, ErrStateInvalid
	}
	issued := time.Unix(st.IssuedAt, 0)
	if issued.After(now) || now.Sub(issued) > StateValidity {
		return nil, ErrStateInvalid
	}
	return &st, nil
}
