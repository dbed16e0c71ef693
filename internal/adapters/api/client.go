package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bnema/atproto-session-cli/internal/domain"
	"github.com/bnema/atproto-session-cli/internal/ports"
)

const maxResponseBytes = 1 << 20

const (
	describeServerNSID = "com.atproto.server.describeServer"
	createSessionNSID  = "com.atproto.server.createSession"
	createAccountNSID  = "com.atproto.server.createAccount"
	getSessionNSID     = "com.atproto.server.getSession"
	deleteSessionNSID  = "com.atproto.server.deleteSession"
	refreshSessionNSID = "com.atproto.server.refreshSession"
	getProfileNSID     = "app.bsky.actor.getProfile"
)

const expiredTokenCode = "ExpiredToken"

// Client talks xrpc to an account service. It is also the configuration sink
// for the current endpoint and credential pair: authenticated calls use
// whatever Configure installed last.
type Client struct {
	httpClient     *http.Client
	requestTimeout time.Duration

	// OnCredentialsRotated fires after a transparent refreshSession so the
	// session holder can pick up the rotated pair.
	onCredentialsRotated func(accessJwt, refreshJwt string)

	mu      sync.RWMutex
	service string
	creds   domain.Credentials
}

type Options struct {
	HTTPClient           *http.Client
	RequestTimeout       time.Duration
	OnCredentialsRotated func(accessJwt, refreshJwt string)
}

var _ ports.AccountClient = (*Client)(nil)

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &Client{
		httpClient:           httpClient,
		requestTimeout:       requestTimeout,
		onCredentialsRotated: opts.OnCredentialsRotated,
	}
}

func (c *Client) Configure(service string, creds domain.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.service = service
	c.creds = creds
}

type sessionResponse struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
	Email      string `json:"email"`
}

type describeServerResponse struct {
	AvailableUserDomains []string `json:"availableUserDomains"`
	InviteCodeRequired   bool     `json:"inviteCodeRequired"`
	Links                struct {
		PrivacyPolicy  string `json:"privacyPolicy"`
		TermsOfService string `json:"termsOfService"`
	} `json:"links"`
}

type profileResponse struct {
	DID            string `json:"did"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	Avatar         string `json:"avatar"`
	FollowersCount int64  `json:"followersCount"`
	FollowsCount   int64  `json:"followsCount"`
	PostsCount     int64  `json:"postsCount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) DescribeServer(ctx context.Context, service string) (domain.ServerDescription, error) {
	var payload describeServerResponse
	if err := c.call(ctx, service, http.MethodGet, describeServerNSID, nil, nil, "", &payload); err != nil {
		return domain.ServerDescription{}, err
	}

	return domain.ServerDescription{
		AvailableUserDomains: payload.AvailableUserDomains,
		InviteCodeRequired:   payload.InviteCodeRequired,
		PrivacyPolicy:        payload.Links.PrivacyPolicy,
		TermsOfService:       payload.Links.TermsOfService,
	}, nil
}

func (c *Client) CreateSession(ctx context.Context, service, identifier, password string) (domain.SessionCredentials, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var payload sessionResponse
	if err := c.call(ctx, service, http.MethodPost, createSessionNSID, nil, body, "", &payload); err != nil {
		return domain.SessionCredentials{}, err
	}

	return sessionCredentials(payload), nil
}

func (c *Client) CreateAccount(ctx context.Context, service string, params ports.CreateAccountParams) (domain.SessionCredentials, error) {
	body := map[string]string{
		"email":    params.Email,
		"handle":   params.Handle,
		"password": params.Password,
	}
	if params.InviteCode != "" {
		body["inviteCode"] = params.InviteCode
	}

	var payload sessionResponse
	if err := c.call(ctx, service, http.MethodPost, createAccountNSID, nil, body, "", &payload); err != nil {
		return domain.SessionCredentials{}, err
	}

	return sessionCredentials(payload), nil
}

func (c *Client) GetSession(ctx context.Context) (domain.AccountInfo, error) {
	var payload sessionResponse
	if err := c.authedCall(ctx, http.MethodGet, getSessionNSID, nil, nil, &payload); err != nil {
		return domain.AccountInfo{}, err
	}

	return domain.AccountInfo{
		DID:    payload.DID,
		Handle: payload.Handle,
		Email:  payload.Email,
	}, nil
}

// DeleteSession revokes the server-side session. Per protocol the refresh
// token authenticates this call, not the access token.
func (c *Client) DeleteSession(ctx context.Context) error {
	service, creds, err := c.configured()
	if err != nil {
		return err
	}

	return c.call(ctx, service, http.MethodPost, deleteSessionNSID, nil, nil, creds.RefreshJwt, nil)
}

func (c *Client) GetProfile(ctx context.Context, actor string) (domain.Profile, error) {
	query := url.Values{}
	query.Set("actor", actor)

	var payload profileResponse
	if err := c.authedCall(ctx, http.MethodGet, getProfileNSID, query, nil, &payload); err != nil {
		return domain.Profile{}, err
	}

	return domain.Profile{
		DID:            payload.DID,
		Handle:         payload.Handle,
		DisplayName:    payload.DisplayName,
		Description:    payload.Description,
		Avatar:         payload.Avatar,
		FollowersCount: payload.FollowersCount,
		FollowsCount:   payload.FollowsCount,
		PostsCount:     payload.PostsCount,
	}, nil
}

// authedCall performs an access-token request against the configured service.
// A rejection with an expired-token code triggers one transparent
// refreshSession and a single retry.
func (c *Client) authedCall(ctx context.Context, method, nsid string, query url.Values, body any, out any) error {
	service, creds, err := c.configured()
	if err != nil {
		return err
	}

	err = c.call(ctx, service, method, nsid, query, body, creds.AccessJwt, out)
	if !isExpiredToken(err) {
		return err
	}

	rotated, err := c.refreshSession(ctx, service, creds.RefreshJwt)
	if err != nil {
		return err
	}

	return c.call(ctx, service, method, nsid, query, body, rotated.AccessJwt, out)
}

func (c *Client) refreshSession(ctx context.Context, service, refreshJwt string) (domain.Credentials, error) {
	var payload sessionResponse
	if err := c.call(ctx, service, http.MethodPost, refreshSessionNSID, nil, nil, refreshJwt, &payload); err != nil {
		return domain.Credentials{}, fmt.Errorf("refresh session: %w", err)
	}
	if payload.AccessJwt == "" || payload.RefreshJwt == "" {
		return domain.Credentials{}, domain.ErrIncompleteCredentials
	}

	rotated := domain.Credentials{
		AccessJwt:  payload.AccessJwt,
		RefreshJwt: payload.RefreshJwt,
	}

	c.mu.Lock()
	c.creds = rotated
	c.mu.Unlock()

	if c.onCredentialsRotated != nil {
		c.onCredentialsRotated(rotated.AccessJwt, rotated.RefreshJwt)
	}

	return rotated, nil
}

func (c *Client) call(ctx context.Context, service, method, nsid string, query url.Values, body any, bearer string, out any) error {
	endpoint, err := buildEndpointURL(service, nsid, query)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", nsid, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", nsid, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", nsid, domain.ErrNetworkUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s: %w: status %d", nsid, domain.ErrNetworkUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %w", nsid, decodeAPIError(resp))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", nsid, err)
	}

	return nil
}

func (c *Client) configured() (string, domain.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.service == "" {
		return "", domain.Credentials{}, errors.New("client is not configured with a service endpoint")
	}
	return c.service, c.creds, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func buildEndpointURL(service, nsid string, query url.Values) (string, error) {
	if service == "" {
		return "", errors.New("service url is required")
	}

	parsed, err := url.Parse(service)
	if err != nil {
		return "", fmt.Errorf("parse service url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("service url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("service url host is required")
	}

	endpoint, err := parsed.Parse("/xrpc/" + nsid)
	if err != nil {
		return "", fmt.Errorf("parse endpoint path: %w", err)
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	return endpoint.String(), nil
}

func decodeAPIError(resp *http.Response) *domain.APIError {
	apiErr := &domain.APIError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return apiErr
	}

	apiErr.Code = payload.Error
	apiErr.Message = payload.Message
	return apiErr
}

func isExpiredToken(err error) bool {
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.Code == expiredTokenCode
}

func sessionCredentials(payload sessionResponse) domain.SessionCredentials {
	return domain.SessionCredentials{
		AccessJwt:  payload.AccessJwt,
		RefreshJwt: payload.RefreshJwt,
		Handle:     payload.Handle,
		DID:        payload.DID,
	}
}
