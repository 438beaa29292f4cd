package cards

// Operation names a collection mutation.
type Operation string

const (
	OpAdd        Operation = "add"
	OpRemove     Operation = "remove"
	OpToggleLike Operation = "toggleLike"
)

// Mode says when a mutation is applied to local state.
type Mode int

const (
	// Confirmed applies the mutation after the server accepted it.
	Confirmed Mode = iota
	// Optimistic applies the mutation before the request is sent.
	Optimistic
)

// Policy is the declared contract of one mutation.
type Policy struct {
	Mode Mode
	// RollbackOnFailure restores the previous state when an optimistic
	// mutation fails. Meaningless for Confirmed.
	RollbackOnFailure bool
}

// Policies maps each mutation to its policy.
type Policies map[Operation]Policy

// DefaultPolicies confirms every mutation before showing it: a card never
// disappears and then comes back, and likes always mirror the server.
func DefaultPolicies() Policies {
	return Policies{
		OpAdd:        {Mode: Confirmed},
		OpRemove:     {Mode: Confirmed},
		OpToggleLike: {Mode: Confirmed},
	}
}

// For returns the policy of op. OpAdd is always Confirmed because the
// server assigns the card id.
func (p Policies) For(op Operation) Policy {
	if op == OpAdd {
		return Policy{Mode: Confirmed}
	}
	if pol, ok := p[op]; ok {
		return pol
	}
	return Policy{Mode: Confirmed}
}
