package limits

import "sync"

// Registry holds the configured limits per user. Limit configuration is
// owned by the UI collaborators; the evaluator only consumes it.
type Registry struct {
	mu      sync.RWMutex
	configs map[string][]Config
}

func NewRegistry() *Registry {
	return &Registry{configs: make(map[string][]Config)}
}

// Set replaces the user's configured limits.
func (r *Registry) Set(userID string, configs []Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Config, len(configs))
	copy(cp, configs)
	r.configs[userID] = cp
}

// Get returns the user's configured limits.
func (r *Registry) Get(userID string) []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]Config, len(r.configs[userID]))
	copy(cp, r.configs[userID])
	return cp
}

// Users returns every user with at least one configured limit.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.configs))
	for u := range r.configs {
		users = append(users, u)
	}
	return users
}
