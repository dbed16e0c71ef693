package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/atproto-session-cli/internal/domain"
	"github.com/bnema/atproto-session-cli/internal/ports"
)

var testSession = domain.Session{
	Service:    "https://pds.example.com",
	AccessJwt:  "access-1",
	RefreshJwt: "refresh-1",
	Handle:     "alice.example.com",
	DID:        "did:plc:alice",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(client *fakeClient, profile *fakeProfile, onboarding *fakeOnboarding) *SessionStore {
	return NewSessionStore(client, profile, onboarding, testLogger())
}

func TestConnectOnlineWhenIdentityMatches(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{DID: testSession.DID, Handle: testSession.Handle}, nil
		},
	}
	profile := &fakeProfile{}
	store := newTestStore(client, profile, &fakeOnboarding{})
	store.SetState(testSession)

	status := store.Connect(context.Background())

	assert.True(t, status.Online)
	assert.True(t, status.HasSession)
	assert.False(t, status.AttemptingConnect)

	service, creds := client.configuredWith()
	assert.Equal(t, testSession.Service, service)
	assert.Equal(t, testSession.AccessJwt, creds.AccessJwt)
	assert.Equal(t, testSession.RefreshJwt, creds.RefreshJwt)

	store.profileLoads.Wait()
	assert.Equal(t, 1, profile.loadCalls())
	assert.Equal(t, 1, profile.clearCalls(), "empty profile cache counts as a different identity")
}

func TestConnectClearsSessionOnIdentityMismatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{DID: "did:plc:somebody-else"}, nil
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	status := store.Connect(context.Background())

	assert.False(t, status.Online)
	assert.False(t, status.HasSession)
	assert.False(t, store.HasSession())
}

func TestConnectClearsSessionOnAuthRejection(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{}, fmt.Errorf("get session: %w", &domain.APIError{StatusCode: 401, Code: "InvalidToken"})
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	status := store.Connect(context.Background())

	assert.False(t, status.Online)
	assert.False(t, status.HasSession)
}

func TestConnectKeepsSessionOnNetworkFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{}, fmt.Errorf("get session: %w: connection refused", domain.ErrNetworkUnavailable)
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	status := store.Connect(context.Background())

	assert.False(t, status.Online)
	assert.True(t, status.HasSession, "an unreachable service must not destroy the session")
	assert.True(t, store.HasSession())
}

func TestConnectClearsSessionOnMalformedServiceURL(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	badSession := testSession
	badSession.Service = "pds.example.com" // no scheme
	store.SetState(badSession)

	status := store.Connect(context.Background())

	assert.False(t, status.HasSession)
	assert.False(t, status.Online)
	assert.Zero(t, client.getSessionCount(), "a malformed endpoint must never be queried")
}

func TestConnectWithoutSessionGoesOffline(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	status := store.Connect(context.Background())

	assert.False(t, status.HasSession)
	assert.False(t, status.Online)
	assert.False(t, status.AttemptingConnect)
	assert.Zero(t, client.getSessionCount())
}

func TestConnectCoalescesConcurrentCalls(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			entered <- struct{}{}
			<-release
			return domain.AccountInfo{DID: testSession.DID}, nil
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	var wg sync.WaitGroup
	statuses := make([]Status, 2)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = store.Connect(context.Background())
		}(i)
	}

	// One caller reaches the server; give the other a moment to park on the
	// in-flight attempt before releasing.
	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), client.getSessionCount())
	assert.Equal(t, statuses[0], statuses[1])
	assert.True(t, statuses[0].Online)
}

func TestConnectStartsFreshAfterSettlement(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{DID: testSession.DID}, nil
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	store.Connect(context.Background())
	store.Connect(context.Background())

	assert.Equal(t, int32(2), client.getSessionCount())
}

func TestConnectProfileLoadFailureIsNotPropagated(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getSessionFn: func(context.Context) (domain.AccountInfo, error) {
			return domain.AccountInfo{DID: testSession.DID}, nil
		},
	}
	profile := &fakeProfile{loadErr: errors.New("profile fetch exploded")}
	store := newTestStore(client, profile, &fakeOnboarding{})
	store.SetState(testSession)

	status := store.Connect(context.Background())
	store.profileLoads.Wait()

	assert.True(t, status.Online)
	assert.True(t, store.HasSession())
}

func TestLoginCommitsSession(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		createSessionFn: func(_ context.Context, service, identifier, password string) (domain.SessionCredentials, error) {
			assert.Equal(t, "https://pds.example.com", service)
			assert.Equal(t, "alice.example.com", identifier)
			assert.Equal(t, "hunter2", password)
			return domain.SessionCredentials{
				AccessJwt:  "access-new",
				RefreshJwt: "refresh-new",
				Handle:     "alice.example.com",
				DID:        "did:plc:alice",
			}, nil
		},
	}
	profile := &fakeProfile{}
	store := newTestStore(client, profile, &fakeOnboarding{})

	err := store.Login(context.Background(), "https://pds.example.com", "alice.example.com", "hunter2")
	require.NoError(t, err)

	data, ok := store.Data()
	require.True(t, ok)
	assert.Equal(t, "did:plc:alice", data.DID)
	assert.Equal(t, "access-new", data.AccessJwt)
	assert.True(t, store.Status().Online)

	_, creds := client.configuredWith()
	assert.Equal(t, "access-new", creds.AccessJwt)

	store.profileLoads.Wait()
	assert.Equal(t, 1, profile.loadCalls())
}

func TestLoginIncompleteCredentialsLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		createSessionFn: func(context.Context, string, string, string) (domain.SessionCredentials, error) {
			return domain.SessionCredentials{AccessJwt: "access-only", Handle: "alice", DID: "did:plc:alice"}, nil
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	err := store.Login(context.Background(), "https://pds.example.com", "alice", "pw")
	require.ErrorIs(t, err, domain.ErrIncompleteCredentials)

	assert.False(t, store.HasSession())
	assert.False(t, store.Status().Online)
}

func TestLoginPropagatesTransportError(t *testing.T) {
	t.Parallel()

	wireErr := fmt.Errorf("create session: %w: dial tcp", domain.ErrNetworkUnavailable)
	client := &fakeClient{
		createSessionFn: func(context.Context, string, string, string) (domain.SessionCredentials, error) {
			return domain.SessionCredentials{}, wireErr
		},
	}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	err := store.Login(context.Background(), "https://pds.example.com", "alice", "pw")
	require.ErrorIs(t, err, domain.ErrNetworkUnavailable)
	assert.False(t, store.HasSession())
}

func TestCreateAccountCommitsSessionAndStartsOnboarding(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		createAccountFn: func(_ context.Context, service string, params ports.CreateAccountParams) (domain.SessionCredentials, error) {
			assert.Equal(t, "alice@example.com", params.Email)
			assert.Equal(t, "invite-123", params.InviteCode)
			return domain.SessionCredentials{
				AccessJwt:  "access-new",
				RefreshJwt: "refresh-new",
				Handle:     params.Handle,
				DID:        "did:plc:alice",
			}, nil
		},
	}
	onboarding := &fakeOnboarding{}
	store := newTestStore(client, &fakeProfile{}, onboarding)

	err := store.CreateAccount(context.Background(), "https://pds.example.com", ports.CreateAccountParams{
		Email:      "alice@example.com",
		Handle:     "alice.example.com",
		Password:   "hunter2",
		InviteCode: "invite-123",
	})
	require.NoError(t, err)

	assert.True(t, store.HasSession())
	assert.True(t, store.Status().Online)
	assert.True(t, onboarding.started())
}

func TestCreateAccountIncompleteCredentialsSkipsOnboarding(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		createAccountFn: func(context.Context, string, ports.CreateAccountParams) (domain.SessionCredentials, error) {
			return domain.SessionCredentials{RefreshJwt: "refresh-only"}, nil
		},
	}
	onboarding := &fakeOnboarding{}
	store := newTestStore(client, &fakeProfile{}, onboarding)

	err := store.CreateAccount(context.Background(), "https://pds.example.com", ports.CreateAccountParams{
		Email:    "alice@example.com",
		Handle:   "alice.example.com",
		Password: "hunter2",
	})
	require.ErrorIs(t, err, domain.ErrIncompleteCredentials)

	assert.False(t, store.HasSession())
	assert.False(t, onboarding.started())
}

func TestLogoutClearsEverythingEvenWhenServerDeleteFails(t *testing.T) {
	t.Parallel()

	client := &fakeClient{deleteSessionErr: errors.New("server said no")}
	profileStore := NewProfileStore(client)
	onboarding := NewOnboardingStore()
	store := NewSessionStore(client, profileStore, onboarding, testLogger())
	profileStore.BindSession(store)
	NewRootStore(store, profileStore, onboarding)

	store.SetState(testSession)
	onboarding.Start()

	store.Logout(context.Background())

	assert.Equal(t, 1, client.deleteSessionCalls())
	assert.False(t, store.HasSession())
	assert.False(t, store.Status().Online)
	assert.False(t, onboarding.Active())
	_, ok := profileStore.Profile()
	assert.False(t, ok)
}

func TestLogoutConfiguresClientBeforeServerDelete(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	// A hydrated session never went through a transaction, so nothing has
	// configured the client yet.
	store.Hydrate(domain.Snapshot{Data: &domain.SessionSnapshot{
		Service:    testSession.Service,
		AccessJwt:  testSession.AccessJwt,
		RefreshJwt: testSession.RefreshJwt,
		Handle:     testSession.Handle,
		DID:        testSession.DID,
	}})

	store.Logout(context.Background())

	assert.Equal(t, 1, client.deleteSessionCalls())
	service, creds := client.configuredWith()
	assert.Equal(t, testSession.Service, service)
	assert.Equal(t, testSession.RefreshJwt, creds.RefreshJwt)
	assert.False(t, store.HasSession())
}

func TestLogoutWithoutSessionSkipsServerCall(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	store := newTestStore(client, &fakeProfile{}, &fakeOnboarding{})

	store.Logout(context.Background())

	assert.Zero(t, client.deleteSessionCalls())
	assert.False(t, store.HasSession())
}

func TestUpdateAuthTokensWithoutSessionIsNoOp(t *testing.T) {
	t.Parallel()

	store := newTestStore(&fakeClient{}, &fakeProfile{}, &fakeOnboarding{})

	store.UpdateAuthTokens("access-x", "refresh-x")

	assert.False(t, store.HasSession())
}

func TestUpdateAuthTokensPreservesIdentity(t *testing.T) {
	t.Parallel()

	store := newTestStore(&fakeClient{}, &fakeProfile{}, &fakeOnboarding{})
	store.SetState(testSession)

	store.UpdateAuthTokens("access-2", "refresh-2")

	data, ok := store.Data()
	require.True(t, ok)
	assert.Equal(t, "access-2", data.AccessJwt)
	assert.Equal(t, "refresh-2", data.RefreshJwt)
	assert.Equal(t, testSession.Handle, data.Handle)
	assert.Equal(t, testSession.DID, data.DID)
	assert.Equal(t, testSession.Service, data.Service)
}

func TestSetOnlineLeavesAttemptingConnectUntouched(t *testing.T) {
	t.Parallel()

	store := newTestStore(&fakeClient{}, &fakeProfile{}, &fakeOnboarding{})
	store.setConnectivity(false, true)

	store.SetOnline(true)

	status := store.Status()
	assert.True(t, status.Online)
	assert.True(t, status.AttemptingConnect)
}

func TestSubscribersObserveEveryMutation(t *testing.T) {
	t.Parallel()

	store := newTestStore(&fakeClient{}, &fakeProfile{}, &fakeOnboarding{})

	var mu sync.Mutex
	var seen []Status
	cancel := store.Subscribe(func(status Status) {
		mu.Lock()
		seen = append(seen, status)
		mu.Unlock()
	})

	store.SetState(testSession)
	store.SetOnline(true)
	store.Clear()

	mu.Lock()
	require.Len(t, seen, 3)
	assert.True(t, seen[0].HasSession)
	assert.True(t, seen[1].Online)
	assert.False(t, seen[2].HasSession)
	assert.False(t, seen[2].Online)
	mu.Unlock()

	cancel()
	store.SetState(testSession)

	mu.Lock()
	assert.Len(t, seen, 3, "cancelled subscriber must not be notified")
	mu.Unlock()
}

type fakeClient struct {
	mu          sync.Mutex
	service     string
	creds       domain.Credentials
	getSessions atomic.Int32
	deletes     int

	getSessionFn     func(ctx context.Context) (domain.AccountInfo, error)
	createSessionFn  func(ctx context.Context, service, identifier, password string) (domain.SessionCredentials, error)
	createAccountFn  func(ctx context.Context, service string, params ports.CreateAccountParams) (domain.SessionCredentials, error)
	describeServerFn func(ctx context.Context, service string) (domain.ServerDescription, error)
	getProfileFn     func(ctx context.Context, actor string) (domain.Profile, error)
	deleteSessionErr error
}

func (c *fakeClient) Configure(service string, creds domain.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.service = service
	c.creds = creds
}

func (c *fakeClient) configuredWith() (string, domain.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service, c.creds
}

func (c *fakeClient) DescribeServer(ctx context.Context, service string) (domain.ServerDescription, error) {
	if c.describeServerFn == nil {
		return domain.ServerDescription{}, nil
	}
	return c.describeServerFn(ctx, service)
}

func (c *fakeClient) CreateSession(ctx context.Context, service, identifier, password string) (domain.SessionCredentials, error) {
	if c.createSessionFn == nil {
		return domain.SessionCredentials{}, nil
	}
	return c.createSessionFn(ctx, service, identifier, password)
}

func (c *fakeClient) CreateAccount(ctx context.Context, service string, params ports.CreateAccountParams) (domain.SessionCredentials, error) {
	if c.createAccountFn == nil {
		return domain.SessionCredentials{}, nil
	}
	return c.createAccountFn(ctx, service, params)
}

func (c *fakeClient) GetSession(ctx context.Context) (domain.AccountInfo, error) {
	c.getSessions.Add(1)
	if c.getSessionFn == nil {
		return domain.AccountInfo{}, nil
	}
	return c.getSessionFn(ctx)
}

func (c *fakeClient) getSessionCount() int32 {
	return c.getSessions.Load()
}

func (c *fakeClient) DeleteSession(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	return c.deleteSessionErr
}

func (c *fakeClient) deleteSessionCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

func (c *fakeClient) GetProfile(ctx context.Context, actor string) (domain.Profile, error) {
	if c.getProfileFn == nil {
		return domain.Profile{DID: actor}, nil
	}
	return c.getProfileFn(ctx, actor)
}

type fakeProfile struct {
	mu      sync.Mutex
	did     string
	clears  int
	loads   int
	loadErr error
}

func (p *fakeProfile) DID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.did
}

func (p *fakeProfile) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	p.did = ""
}

func (p *fakeProfile) Load(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return p.loadErr
}

func (p *fakeProfile) clearCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clears
}

func (p *fakeProfile) loadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

type fakeOnboarding struct {
	mu    sync.Mutex
	calls int
}

func (o *fakeOnboarding) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
}

func (o *fakeOnboarding) started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls > 0
}
