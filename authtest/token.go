package authtest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	sessionIDSize    = 16
	refreshSecretLen = 32
	refreshTokenLen  = sessionIDSize + refreshSecretLen
)

var errMalformedRefresh = errors.New("authtest: malformed refresh token")

type sessionID [sessionIDSize]byte

func (s sessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func newSessionID() (sessionID, error) {
	var sid sessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func newRefreshSecret() ([refreshSecretLen]byte, error) {
	var secret [refreshSecretLen]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func hashSecret(secret [refreshSecretLen]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// encodeRefreshToken packs the session ID and secret into an opaque token.
func encodeRefreshToken(sid sessionID, secret [refreshSecretLen]byte) string {
	var raw [refreshTokenLen]byte
	copy(raw[:sessionIDSize], sid[:])
	copy(raw[sessionIDSize:], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func decodeRefreshToken(token string) (sessionID, [refreshSecretLen]byte, error) {
	var sid sessionID
	var secret [refreshSecretLen]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return sid, secret, errMalformedRefresh
	}
	if len(raw) != refreshTokenLen {
		return sid, secret, errMalformedRefresh
	}

	copy(sid[:], raw[:sessionIDSize])
	copy(secret[:], raw[sessionIDSize:])
	return sid, secret, nil
}
