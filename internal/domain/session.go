package domain

// Session is the full credential-and-identity tuple held for one signed-in
// account. It is valid only when every field is non-empty; a partially
// populated session must never be adopted.
type Session struct {
	Service    string
	AccessJwt  string
	RefreshJwt string
	Handle     string
	DID        string
}

func (s Session) Complete() bool {
	return s.Service != "" &&
		s.AccessJwt != "" &&
		s.RefreshJwt != "" &&
		s.Handle != "" &&
		s.DID != ""
}

// Credentials is the bearer-token pair the network client presents on
// authenticated calls.
type Credentials struct {
	AccessJwt  string
	RefreshJwt string
}

// SessionCredentials is the raw createSession/createAccount response. Any
// field may be empty; callers decide whether a partial response is usable.
type SessionCredentials struct {
	AccessJwt  string
	RefreshJwt string
	Handle     string
	DID        string
}

func (c SessionCredentials) HasTokens() bool {
	return c.AccessJwt != "" && c.RefreshJwt != ""
}

// AccountInfo is the identity the server reports for the current session.
type AccountInfo struct {
	DID    string
	Handle string
	Email  string
}
