package ports

import "context"

// ProfileStore is the cached-profile collaborator the session store clears on
// identity change and reloads after a successful transaction.
type ProfileStore interface {
	DID() string
	Clear()
	Load(ctx context.Context) error
}

// OnboardingStore is signalled when a brand-new account is created.
type OnboardingStore interface {
	Start()
}
