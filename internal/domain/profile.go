package domain

type Profile struct {
	DID            string
	Handle         string
	DisplayName    string
	Description    string
	Avatar         string
	FollowersCount int64
	FollowsCount   int64
	PostsCount     int64
}

// ServerDescription is the account-creation configuration a service reports
// before any session exists.
type ServerDescription struct {
	AvailableUserDomains []string
	InviteCodeRequired   bool
	PrivacyPolicy        string
	TermsOfService       string
}
