package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptSnapshot is returned by Decode for snapshots that are not a
// valid session document.
var ErrCorruptSnapshot = errors.New("session: corrupt snapshot")

type snapshot struct {
	User         json.RawMessage `json:"user,omitempty"`
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

// Encode serializes s into the persisted snapshot format.
func Encode(s Session) ([]byte, error) {
	if len(s.User) > 0 && !json.Valid(s.User) {
		return nil, fmt.Errorf("session: user payload is not valid JSON")
	}
	return json.Marshal(snapshot{
		User:         s.User,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	})
}

// Decode parses a persisted snapshot. A snapshot that decodes to the empty
// session is reported as corrupt, since an empty session is never written.
func Decode(data []byte) (Session, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Session{}, ErrCorruptSnapshot
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	s := Session{
		AccessToken:  snap.AccessToken,
		RefreshToken: snap.RefreshToken,
	}
	if len(snap.User) > 0 && !bytes.Equal(snap.User, []byte("null")) {
		s.User = snap.User
	}
	if s.IsZero() {
		return Session{}, ErrCorruptSnapshot
	}
	return s, nil
}
