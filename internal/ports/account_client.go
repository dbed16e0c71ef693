package ports

import (
	"context"

	"github.com/bnema/atproto-session-cli/internal/domain"
)

type CreateAccountParams struct {
	Email      string
	Handle     string
	Password   string
	InviteCode string
}

// AccountClient is the boundary to the remote account/session service. It is
// also the configuration sink: Configure must be called with the service
// endpoint and current credentials before any authenticated call.
type AccountClient interface {
	Configure(service string, creds domain.Credentials)
	DescribeServer(ctx context.Context, service string) (domain.ServerDescription, error)
	CreateSession(ctx context.Context, service, identifier, password string) (domain.SessionCredentials, error)
	CreateAccount(ctx context.Context, service string, params CreateAccountParams) (domain.SessionCredentials, error)
	GetSession(ctx context.Context) (domain.AccountInfo, error)
	DeleteSession(ctx context.Context) error
	GetProfile(ctx context.Context, actor string) (domain.Profile, error)
}
