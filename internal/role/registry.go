package role

import (
	"sync"
	"time"

	"goldcore/internal/domain"
)

// Registry owns RoleBinding records exclusively, keyed by position
// id, grounded on the teacher's orders.PositionTracker in-memory
// cache. A binding exists iff its position is currently open
// (SPEC_FULL.md §8 invariant 4).
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]domain.RoleBinding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]domain.RoleBinding)}
}

// Sync drops bindings whose id is no longer in openIDs. Calling Sync
// twice with the same set is a no-op (idempotence law, §8).
func (r *Registry) Sync(openIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]struct{}, len(openIDs))
	for _, id := range openIDs {
		keep[id] = struct{}{}
	}
	for id := range r.bindings {
		if _, ok := keep[id]; !ok {
			delete(r.bindings, id)
		}
	}
}

// Binding returns the binding for a position id, if any.
func (r *Registry) Binding(id string) (domain.RoleBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

// All returns a snapshot copy of every current binding.
func (r *Registry) All() map[string]domain.RoleBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.RoleBinding, len(r.bindings))
	for k, v := range r.bindings {
		out[k] = v
	}
	return out
}

// RoleCounts tallies current bindings by role.
func (r *Registry) RoleCounts() map[domain.Role]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[domain.Role]int{}
	for _, b := range r.bindings {
		out[b.Role]++
	}
	return out
}

// OnNewPosition assigns a role to a newly observed position using the
// scoring rubric and balance correction from scoring.go, and binds it.
// Scoring never errors; on any internal inconsistency it falls back to
// PW (SPEC_FULL.md §4.2 failure semantics).
func (r *Registry) OnNewPosition(id string, in ScoreInput, now time.Time) domain.Role {
	role := func() (role domain.Role) {
		defer func() {
			if recover() != nil {
				role = domain.RoleProfitWalker
			}
		}()
		scores := Score(in)
		return Argmax(scores)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = domain.RoleBinding{
		PositionID:   id,
		Role:         role,
		AssignedAt:   now,
		OriginalRole: role,
	}
	return role
}

// EvaluateEvolutions runs Evolve over every bound position and returns
// the suggested transitions without applying them — the caller
// (engine) decides whether to Apply each one.
func (r *Registry) EvaluateEvolutions(positions []PositionLocal) []EvolutionCandidate {
	r.mu.RLock()
	bound := make(map[string]domain.RoleBinding, len(r.bindings))
	for k, v := range r.bindings {
		bound[k] = v
	}
	r.mu.RUnlock()

	var out []EvolutionCandidate
	for _, p := range positions {
		b, ok := bound[p.PositionID]
		if !ok {
			continue // unknown ids are ignored
		}
		p.Role = b.Role
		if c := Evolve(p); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// Apply commits one evolution candidate, appending to history and
// bumping the role. Unknown ids are ignored.
func (r *Registry) Apply(c EvolutionCandidate, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[c.PositionID]
	if !ok {
		return false
	}
	b.History = append(b.History, domain.RoleTransition{From: c.From, To: c.To, Reason: c.Reason, At: now})
	b.Role = c.To
	r.bindings[c.PositionID] = b
	return true
}
