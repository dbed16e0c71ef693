package ports

import (
	"context"

	"github.com/bnema/atproto-session-cli/internal/domain"
)

// SnapshotRepository persists the session snapshot. Load returns the stored
// value in untyped form; the session store decides whether it is adoptable.
type SnapshotRepository interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}
