package application

// RootStore is the composition of every dependent store. ClearAll is the
// shared teardown contract logout relies on: it clears the session store
// itself along with all its siblings.
type RootStore struct {
	Session    *SessionStore
	Profile    *ProfileStore
	Onboarding *OnboardingStore
}

func NewRootStore(session *SessionStore, profile *ProfileStore, onboarding *OnboardingStore) *RootStore {
	root := &RootStore{
		Session:    session,
		Profile:    profile,
		Onboarding: onboarding,
	}
	session.SetClearAllHook(root.ClearAll)
	return root
}

func (r *RootStore) ClearAll() {
	r.Session.Clear()
	r.Profile.Clear()
	r.Onboarding.Reset()
}
