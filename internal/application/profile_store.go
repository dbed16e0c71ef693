package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/atproto-session-cli/internal/domain"
	"github.com/bnema/atproto-session-cli/internal/ports"
)

// sessionReader is what the profile store needs from the session holder: the
// identity to load a profile for.
type sessionReader interface {
	Data() (domain.Session, bool)
}

// ProfileStore caches the signed-in account's profile. The session store
// clears it when the confirmed identity changes and reloads it after every
// successful transaction.
type ProfileStore struct {
	client  ports.AccountClient
	session sessionReader

	mu      sync.RWMutex
	profile *domain.Profile
}

func NewProfileStore(client ports.AccountClient) *ProfileStore {
	return &ProfileStore{client: client}
}

// BindSession attaches the session holder the profile store reads its actor
// from. Done post-construction because the two stores reference each other.
func (p *ProfileStore) BindSession(session sessionReader) {
	p.session = session
}

func (p *ProfileStore) DID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.profile == nil {
		return ""
	}
	return p.profile.DID
}

func (p *ProfileStore) Profile() (domain.Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.profile == nil {
		return domain.Profile{}, false
	}
	return *p.profile, true
}

func (p *ProfileStore) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = nil
}

func (p *ProfileStore) Load(ctx context.Context) error {
	if p.session == nil {
		return domain.ErrNoSession
	}
	session, ok := p.session.Data()
	if !ok {
		return domain.ErrNoSession
	}

	profile, err := p.client.GetProfile(ctx, session.DID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	p.mu.Lock()
	p.profile = &profile
	p.mu.Unlock()

	return nil
}
