package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/bnema/atproto-session-cli/internal/adapters/api"
	tomlrepo "github.com/bnema/atproto-session-cli/internal/adapters/repo/toml"
	"github.com/bnema/atproto-session-cli/internal/application"
	"github.com/bnema/atproto-session-cli/internal/logging"
	"github.com/bnema/atproto-session-cli/internal/ports"
)

const (
	defaultService    = "https://bsky.social"
	serviceDefaultKey = "service.default"
	serviceDefaultEnv = "APS_DEFAULT_SERVICE"
)

type app struct {
	session        *application.SessionStore
	profile        *application.ProfileStore
	onboarding     *application.OnboardingStore
	root           *application.RootStore
	repo           ports.SnapshotRepository
	logger         *slog.Logger
	defaultService string
}

func wireApp() (*app, error) {
	cfg := viper.New()
	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire snapshot repository: %w", err)
	}

	logger := logging.FromEnv(os.Stderr)

	// The rotation callback closes over the store variable: the client needs
	// it at construction, the store needs the client.
	var session *application.SessionStore
	client := api.NewClient(api.Options{
		HTTPClient: http.DefaultClient,
		OnCredentialsRotated: func(accessJwt, refreshJwt string) {
			if session != nil {
				session.UpdateAuthTokens(accessJwt, refreshJwt)
			}
		},
	})

	profile := application.NewProfileStore(client)
	onboarding := application.NewOnboardingStore()
	session = application.NewSessionStore(client, profile, onboarding, logger)
	profile.BindSession(session)
	root := application.NewRootStore(session, profile, onboarding)

	// Restore before subscribing so startup hydration does not immediately
	// rewrite the file it was read from.
	raw, err := repo.Load(context.Background())
	if err != nil {
		logger.Warn("load session snapshot", "error", err)
	} else {
		session.Hydrate(raw)
	}

	session.Subscribe(func(application.Status) {
		if err := repo.Save(context.Background(), session.Serialize()); err != nil {
			logger.Warn("persist session snapshot", "error", err)
		}
	})

	return &app{
		session:        session,
		profile:        profile,
		onboarding:     onboarding,
		root:           root,
		repo:           repo,
		logger:         logger,
		defaultService: resolveDefaultService(cfg),
	}, nil
}

// resolveDefaultService picks the endpoint used when a command gets no
// --service flag: environment first, then the config file, then the public
// default.
func resolveDefaultService(cfg *viper.Viper) string {
	if value := os.Getenv(serviceDefaultEnv); value != "" {
		return value
	}
	if value := cfg.GetString(serviceDefaultKey); value != "" {
		return value
	}
	return defaultService
}
