package cluster

// Role indicates a node's place in the static topology.
type Role string

const (
	// RolePrimary is the node new members join through.
	RolePrimary Role = "primary"
	// RolePeer is any other statically known node.
	RolePeer Role = "peer"
)

// Node is a statically configured cluster host. The node set is fixed at
// construction time and never mutated; membership status is always derived
// by querying the protocol service, never cached here.
type Node struct {
	Name string // short name, also the protocol-level node identifier
	FQDN string // fully qualified name
	Addr string // management address
	Role Role
}

// Member is one row of the live roster as reported by the protocol service.
type Member struct {
	ID    int
	Name  string
	Addr  string
	Votes int
	Local bool // true for the node answering the query
}

// Membership is the live, authoritative roster plus quorum reachability.
// It is read on demand and never persisted.
type Membership struct {
	Members []Member
	Quorate bool
}

// Count returns the number of current members.
func (m Membership) Count() int { return len(m.Members) }

// HasNode reports whether the roster lists the node under any of its
// identities. The protocol service reports ring addresses in the name
// column on some deployments, so a roster entry matches on the short name,
// the fully qualified name or the address.
func (m Membership) HasNode(n Node) bool {
	for _, mb := range m.Members {
		if mb.Name == n.Name || (n.FQDN != "" && mb.Name == n.FQDN) {
			return true
		}
		if n.Addr != "" && (mb.Name == n.Addr || mb.Addr == n.Addr) {
			return true
		}
	}
	return false
}

// LocalMember returns the roster entry for the answering node, if present.
func (m Membership) LocalMember() (Member, bool) {
	for _, mb := range m.Members {
		if mb.Local {
			return mb, true
		}
	}
	return Member{}, false
}

// Outcome classifies the result of one membership operation against one node.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeAlreadyMember Outcome = "already-member"
	OutcomeFailed        Outcome = "failed"
	OutcomeNotAttempted  Outcome = "not-attempted"
)

// PeerResult is the per-peer outcome of a fan-out operation.
type PeerResult struct {
	Node    Node
	Outcome Outcome
	Err     error // set when Outcome is OutcomeFailed
}
