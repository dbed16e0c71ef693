package application

import "sync"

// OnboardingStore tracks whether the first-run flow should be shown. Account
// creation starts it; the root teardown resets it.
type OnboardingStore struct {
	mu     sync.Mutex
	active bool
}

func NewOnboardingStore() *OnboardingStore {
	return &OnboardingStore{}
}

func (o *OnboardingStore) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = true
}

func (o *OnboardingStore) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *OnboardingStore) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = false
}
