package session

import "encoding/json"

// Session is the single authoritative record of the client's authentication
// state. The zero value is the logged-out session.
type Session struct {
	// User is the opaque identity payload returned by the login endpoint.
	User         json.RawMessage
	AccessToken  string
	RefreshToken string
}

// IsAuthenticated reports whether an access token is present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// IsZero reports whether the session carries no state at all.
func (s Session) IsZero() bool {
	return len(s.User) == 0 && s.AccessToken == "" && s.RefreshToken == ""
}

func (s Session) clone() Session {
	out := s
	if s.User != nil {
		out.User = append(json.RawMessage(nil), s.User...)
	}
	return out
}

// Patch is a partial update applied by [Store.Set]. Nil fields are left
// unchanged.
type Patch struct {
	User         *json.RawMessage
	AccessToken  *string
	RefreshToken *string
}

func (p Patch) apply(s Session) Session {
	if p.User != nil {
		s.User = append(json.RawMessage(nil), (*p.User)...)
	}
	if p.AccessToken != nil {
		s.AccessToken = *p.AccessToken
	}
	if p.RefreshToken != nil {
		s.RefreshToken = *p.RefreshToken
	}
	return s
}

// Full returns a Patch that replaces every field of the session.
func Full(user json.RawMessage, accessToken, refreshToken string) Patch {
	return Patch{
		User:         &user,
		AccessToken:  &accessToken,
		RefreshToken: &refreshToken,
	}
}

// Tokens returns a Patch updating the access token and, when refreshToken is
// non-empty, the refresh token. The user payload is left unchanged.
func Tokens(accessToken, refreshToken string) Patch {
	p := Patch{AccessToken: &accessToken}
	if refreshToken != "" {
		p.RefreshToken = &refreshToken
	}
	return p
}
