package domain

// Snapshot is the durable form of the session holder: the session record or
// nothing. Connectivity flags are deliberately absent, they are not durable.
type Snapshot struct {
	Data *SessionSnapshot `json:"data" toml:"data"`
}

type SessionSnapshot struct {
	Service    string `json:"service" toml:"service"`
	AccessJwt  string `json:"accessJwt" toml:"access_jwt"`
	RefreshJwt string `json:"refreshJwt" toml:"refresh_jwt"`
	Handle     string `json:"handle" toml:"handle"`
	DID        string `json:"did" toml:"did"`
}
