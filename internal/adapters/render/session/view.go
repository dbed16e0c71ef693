package session

import (
	"fmt"

	"github.com/bnema/atproto-session-cli/internal/application"
	"github.com/bnema/atproto-session-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// View bundles everything the status command shows: the holder's status
// flags, the session record if one exists, and the cached profile if loaded.
type View struct {
	Status           application.Status
	Session          *domain.Session
	Profile          *domain.Profile
	OnboardingActive bool
}

func renderView(view View, s styles) string {
	lines := []string{
		s.title.Render("Session Status"),
	}

	if !view.Status.HasSession || view.Session == nil {
		lines = append(lines,
			s.empty.Render("No session. Run `aps login` to sign in."),
		)
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines,
		s.account.Render(accountTitle(view.Session.Handle, view.Session.DID)),
		s.detail.Render(fmt.Sprintf("service: %s", view.Session.Service)),
		connectivityLine(view.Status, s),
	)

	if view.Profile != nil {
		lines = append(lines, s.section.Render(renderProfile(*view.Profile, s)))
	}

	if view.OnboardingActive {
		lines = append(lines, s.warning.Render("onboarding in progress"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func accountTitle(handle, did string) string {
	if handle == "" {
		return did
	}
	return fmt.Sprintf("@%s (%s)", handle, did)
}

func connectivityLine(status application.Status, s styles) string {
	switch {
	case status.AttemptingConnect:
		return s.detail.Render("connectivity: verifying...")
	case status.Online:
		return s.online.Render("connectivity: online")
	default:
		return s.offline.Render("connectivity: offline (session unverified)")
	}
}

func renderProfile(profile domain.Profile, s styles) string {
	parts := make([]string, 0, 3)

	if profile.DisplayName != "" {
		parts = append(parts, s.detail.Render(profile.DisplayName))
	}
	parts = append(parts, s.meta.Render(fmt.Sprintf(
		"followers: %d  follows: %d  posts: %d",
		profile.FollowersCount, profile.FollowsCount, profile.PostsCount,
	)))
	if profile.Description != "" {
		parts = append(parts, s.meta.Render(profile.Description))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
