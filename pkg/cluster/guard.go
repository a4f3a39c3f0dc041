package cluster

// The quorum safety guard is a pure decision layer: it never talks to the
// protocol service and has no side effects. Thresholds follow the usual
// floor(n/2)+1 quorum formula for a voting membership protocol.

// CanRemovePeer decides whether removing a peer from a cluster with
// currentMembers members is quorum-safe. Removal is refused whenever it
// would leave one or fewer members: two survivors of a three-node cluster
// can still vote each other quorate, a lone survivor cannot.
func CanRemovePeer(currentMembers int) error {
	if currentMembers-1 <= 1 {
		return ErrQuorumUnsafe
	}
	return nil
}

// CanLeave decides whether the local node's own departure is allowed.
// Leaving a single-node cluster is refused as meaningless. Leaving a
// two-node cluster down to one is allowed; this is deliberately laxer than
// CanRemovePeer and is a known gap kept for compatibility with existing
// deployments rather than silently tightened.
func CanLeave(currentMembers int) error {
	if currentMembers <= 1 {
		return ErrQuorumUnsafe
	}
	return nil
}

// Confirmer asks the operator to approve a destructive operation.
type Confirmer func(prompt string) bool

// AutoConfirm approves every operation without prompting.
func AutoConfirm(string) bool { return true }
