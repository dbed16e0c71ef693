package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/bnema/atproto-session-cli/internal/domain"
	"github.com/bnema/atproto-session-cli/internal/ports"
)

// Status describes the holder from the outside: whether credentials exist and
// whether the service currently accepts them. A session can exist while
// offline.
type Status struct {
	HasSession        bool
	Online            bool
	AttemptingConnect bool
}

// Subscriber receives a status snapshot after every holder mutation.
type Subscriber func(Status)

type connectAttempt struct {
	done   chan struct{}
	status Status
}

// SessionStore owns the session record and mediates every state transition:
// login, account creation, logout, credential rotation, and reconciliation of
// a restored session against the live service.
type SessionStore struct {
	client     ports.AccountClient
	profile    ports.ProfileStore
	onboarding ports.OnboardingStore
	logger     *slog.Logger

	mu                sync.Mutex
	data              *domain.Session
	online            bool
	attemptingConnect bool
	inflight          *connectAttempt
	subscribers       map[int]Subscriber
	nextSubscriber    int
	clearAll          func()

	profileLoads sync.WaitGroup
}

func NewSessionStore(client ports.AccountClient, profile ports.ProfileStore, onboarding ports.OnboardingStore, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionStore{
		client:      client,
		profile:     profile,
		onboarding:  onboarding,
		logger:      logger,
		subscribers: map[int]Subscriber{},
	}
}

// SetClearAllHook installs the root collaborator's teardown. Logout invokes it
// unconditionally; without a hook only this store and the profile cache are
// cleared.
func (s *SessionStore) SetClearAllHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAll = fn
}

func (s *SessionStore) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data != nil
}

func (s *SessionStore) Data() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return domain.Session{}, false
	}
	return *s.data, true
}

func (s *SessionStore) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *SessionStore) statusLocked() Status {
	return Status{
		HasSession:        s.data != nil,
		Online:            s.online,
		AttemptingConnect: s.attemptingConnect,
	}
}

// SetState replaces the session record wholesale. Completeness is the
// caller's responsibility; Hydrate and the transactions validate before
// calling.
func (s *SessionStore) SetState(session domain.Session) {
	s.mu.Lock()
	s.data = &session
	s.mu.Unlock()

	s.notify()
}

// UpdateAuthTokens rotates the credential pair in place, preserving the
// identity fields. Without a current session it does nothing.
func (s *SessionStore) UpdateAuthTokens(accessJwt, refreshJwt string) {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return
	}
	s.data.AccessJwt = accessJwt
	s.data.RefreshJwt = refreshJwt
	s.mu.Unlock()

	s.notify()
}

// SetOnline sets the connectivity flag, leaving attemptingConnect untouched.
func (s *SessionStore) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()

	s.notify()
}

func (s *SessionStore) setConnectivity(online, attemptingConnect bool) {
	s.mu.Lock()
	s.online = online
	s.attemptingConnect = attemptingConnect
	s.mu.Unlock()

	s.notify()
}

// Clear drops the session and forces offline. Only a new successful
// transaction brings a session back.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.data = nil
	s.online = false
	s.mu.Unlock()

	s.notify()
}

// Subscribe registers fn for status snapshots on every mutation. The returned
// function cancels the subscription.
func (s *SessionStore) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) notify() {
	s.mu.Lock()
	status := s.statusLocked()
	subscribers := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(status)
	}
}

// Connect reconciles the held session against the service, coalescing
// concurrent calls into a single verification round trip. Every caller
// observes the same settled status; errors never escape, they only surface as
// status flags.
func (s *SessionStore) Connect(ctx context.Context) Status {
	s.mu.Lock()
	if attempt := s.inflight; attempt != nil {
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.status
		case <-ctx.Done():
			return s.Status()
		}
	}

	attempt := &connectAttempt{done: make(chan struct{})}
	s.inflight = attempt
	s.mu.Unlock()

	s.reconcile(ctx)

	s.mu.Lock()
	s.inflight = nil
	attempt.status = s.statusLocked()
	s.mu.Unlock()
	close(attempt.done)

	return attempt.status
}

func (s *SessionStore) reconcile(ctx context.Context) {
	s.mu.Lock()
	s.attemptingConnect = true
	s.mu.Unlock()
	s.notify()

	session, ok := s.Data()
	if !ok {
		s.setConnectivity(false, false)
		return
	}

	if err := validateServiceURL(session.Service); err != nil {
		// A persisted session pointing at a malformed endpoint cannot be
		// trusted at all.
		s.logger.Error("stored service endpoint is invalid, dropping session",
			"service", session.Service, "error", err)
		s.Clear()
		s.setConnectivity(false, false)
		return
	}

	s.client.Configure(session.Service, domain.Credentials{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
	})

	info, err := s.client.GetSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNetworkUnavailable) {
			// The credential may still be good; only connectivity is unknown.
			s.logger.Warn("service unreachable, keeping session", "error", err)
			s.setConnectivity(false, false)
			return
		}

		s.logger.Warn("stored session rejected by service, dropping it", "error", err)
		s.Clear()
		s.setConnectivity(false, false)
		return
	}

	if info.DID != session.DID {
		s.logger.Warn("service reports a different identity, dropping session",
			"stored", session.DID, "reported", info.DID)
		s.Clear()
		s.setConnectivity(false, false)
		return
	}

	s.setConnectivity(true, false)

	if s.profile.DID() != info.DID {
		s.profile.Clear()
	}
	s.loadProfileAsync()
}

// DescribeService queries a service's account-creation configuration. No
// session is needed and no state changes.
func (s *SessionStore) DescribeService(ctx context.Context, service string) (domain.ServerDescription, error) {
	description, err := s.client.DescribeServer(ctx, service)
	if err != nil {
		return domain.ServerDescription{}, fmt.Errorf("describe service: %w", err)
	}
	return description, nil
}

// Login exchanges handle and password for a fresh session. A response missing
// either token yields ErrIncompleteCredentials and leaves all state untouched.
func (s *SessionStore) Login(ctx context.Context, service, identifier, password string) error {
	creds, err := s.client.CreateSession(ctx, service, identifier, password)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !creds.HasTokens() {
		return domain.ErrIncompleteCredentials
	}

	s.commitSession(service, creds)
	return nil
}

// CreateAccount registers a new account and commits the returned session the
// same way Login does, then signals onboarding to start.
func (s *SessionStore) CreateAccount(ctx context.Context, service string, params ports.CreateAccountParams) error {
	creds, err := s.client.CreateAccount(ctx, service, params)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if !creds.HasTokens() {
		return domain.ErrIncompleteCredentials
	}

	s.commitSession(service, creds)
	s.onboarding.Start()
	return nil
}

// Logout revokes the server-side session on a best-effort basis, then tears
// down all local state. A failed revoke never blocks the local clear.
func (s *SessionStore) Logout(ctx context.Context) {
	if session, ok := s.Data(); ok {
		// The client may never have been configured in this process when the
		// session came from a hydrated snapshot.
		s.client.Configure(session.Service, domain.Credentials{
			AccessJwt:  session.AccessJwt,
			RefreshJwt: session.RefreshJwt,
		})
		if err := s.client.DeleteSession(ctx); err != nil {
			s.logger.Warn("server-side session delete failed", "error", err)
		}
	}

	s.mu.Lock()
	clearAll := s.clearAll
	s.mu.Unlock()

	if clearAll != nil {
		clearAll()
		return
	}
	s.Clear()
	s.profile.Clear()
}

func (s *SessionStore) commitSession(service string, creds domain.SessionCredentials) {
	s.client.Configure(service, domain.Credentials{
		AccessJwt:  creds.AccessJwt,
		RefreshJwt: creds.RefreshJwt,
	})
	s.SetState(domain.Session{
		Service:    service,
		AccessJwt:  creds.AccessJwt,
		RefreshJwt: creds.RefreshJwt,
		Handle:     creds.Handle,
		DID:        creds.DID,
	})
	s.setConnectivity(true, false)
	s.loadProfileAsync()
}

// loadProfileAsync refreshes the profile cache without tying its outcome to
// the calling transaction.
func (s *SessionStore) loadProfileAsync() {
	s.profileLoads.Add(1)
	go func() {
		defer s.profileLoads.Done()
		if err := s.profile.Load(context.Background()); err != nil {
			s.logger.Warn("profile load failed", "error", err)
		}
	}()
}

func validateServiceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse service url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("service url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("service url host is required")
	}
	return nil
}
