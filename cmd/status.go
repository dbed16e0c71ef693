package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	renderadapter "github.com/bnema/atproto-session-cli/internal/adapters/render/session"
	"github.com/bnema/atproto-session-cli/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool
	var live bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session and connectivity status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if live && app.session.HasSession() {
				app.session.Connect(cmd.Context())
				if err := app.profile.Load(cmd.Context()); err != nil {
					app.logger.Warn("profile load failed", "error", err)
				}
			}

			view := renderadapter.View{
				Status:           app.session.Status(),
				OnboardingActive: app.onboarding.Active(),
			}
			if data, ok := app.session.Data(); ok {
				view.Session = &data
			}
			if profile, ok := app.profile.Profile(); ok {
				view.Profile = &profile
			}

			if asJSON {
				return printStatusJSON(cmd, view)
			}

			rendered, err := renderadapter.Render(view)
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	cmd.Flags().BoolVar(&live, "live", false, "Verify the session against the service before printing")

	return cmd
}

type statusPayload struct {
	HasSession        bool            `json:"hasSession"`
	Online            bool            `json:"online"`
	AttemptingConnect bool            `json:"attemptingConnect"`
	Service           string          `json:"service,omitempty"`
	Handle            string          `json:"handle,omitempty"`
	DID               string          `json:"did,omitempty"`
	Profile           *domain.Profile `json:"profile,omitempty"`
	OnboardingActive  bool            `json:"onboardingActive"`
}

func printStatusJSON(cmd *cobra.Command, view renderadapter.View) error {
	payload := statusPayload{
		HasSession:        view.Status.HasSession,
		Online:            view.Status.Online,
		AttemptingConnect: view.Status.AttemptingConnect,
		Profile:           view.Profile,
		OnboardingActive:  view.OnboardingActive,
	}
	if view.Session != nil {
		payload.Service = view.Session.Service
		payload.Handle = view.Session.Handle
		payload.DID = view.Session.DID
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}
