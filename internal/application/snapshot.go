package application

import "github.com/bnema/atproto-session-cli/internal/domain"

// Serialize captures the holder's durable state: the session record or
// nothing. Connectivity flags are excluded.
func (s *SessionStore) Serialize() domain.Snapshot {
	session, ok := s.Data()
	if !ok {
		return domain.Snapshot{}
	}

	return domain.Snapshot{Data: &domain.SessionSnapshot{
		Service:    session.Service,
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		DID:        session.DID,
	}}
}

// Hydrate restores a previously serialized snapshot from untyped input. It
// fails soft: unrecognized shapes are ignored, only string-typed fields are
// copied, and the assembled record is adopted only when complete. Corrupt or
// incompatible persisted state never produces a partial in-memory session.
func (s *SessionStore) Hydrate(raw any) {
	switch snapshot := raw.(type) {
	case domain.Snapshot:
		s.hydrateSnapshot(snapshot)
	case *domain.Snapshot:
		if snapshot != nil {
			s.hydrateSnapshot(*snapshot)
		}
	case map[string]any:
		s.hydrateUntyped(snapshot)
	}
}

func (s *SessionStore) hydrateSnapshot(snapshot domain.Snapshot) {
	if snapshot.Data == nil {
		return
	}

	session := domain.Session{
		Service:    snapshot.Data.Service,
		AccessJwt:  snapshot.Data.AccessJwt,
		RefreshJwt: snapshot.Data.RefreshJwt,
		Handle:     snapshot.Data.Handle,
		DID:        snapshot.Data.DID,
	}
	if !session.Complete() {
		return
	}
	s.SetState(session)
}

func (s *SessionStore) hydrateUntyped(snapshot map[string]any) {
	fields, ok := snapshot["data"].(map[string]any)
	if !ok {
		return
	}

	session := domain.Session{
		Service:    stringField(fields, "service"),
		AccessJwt:  stringField(fields, "access_jwt", "accessJwt"),
		RefreshJwt: stringField(fields, "refresh_jwt", "refreshJwt"),
		Handle:     stringField(fields, "handle"),
		DID:        stringField(fields, "did"),
	}
	if !session.Complete() {
		return
	}
	s.SetState(session)
}

func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := fields[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
