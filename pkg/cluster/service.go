package cluster

import "context"

// ProtocolService is the black-box consensus/membership daemon the
// orchestrator drives. Implementations wrap the host's cluster tooling;
// every call must be bounded by the supplied context.
type ProtocolService interface {
	// Create founds a new cluster under the given name on the local node.
	Create(ctx context.Context, name string) error
	// AddNode joins the local node to the cluster reachable at primaryAddr.
	AddNode(ctx context.Context, primaryAddr string, force bool) error
	// RemoveNode expels the named node from the cluster.
	RemoveNode(ctx context.Context, shortName string) error
	// Leave withdraws the local node from the cluster.
	Leave(ctx context.Context) error
	// Status returns the live roster. A node that is not part of any
	// cluster yields an empty, non-quorate Membership and no error.
	Status(ctx context.Context) (Membership, error)
	// ListMembers returns the short names of all current members.
	ListMembers(ctx context.Context) ([]string, error)
	// ReloadConfig asks the daemon to re-read its configuration document.
	ReloadConfig(ctx context.Context) error
	// QuorumCheck reports whether quorum is currently reachable.
	QuorumCheck(ctx context.Context) (bool, error)
}

// Remote issues membership commands on a peer host over an authenticated
// channel. Calls are bounded by connect and response timeouts and are never
// retried at this layer; retry policy belongs to the caller.
type Remote interface {
	// CheckMember reports whether the node is already a cluster member.
	// A channel failure is returned as an error wrapping ErrUnreachable.
	CheckMember(ctx context.Context, node Node) (bool, error)
	// Join instructs the node to join the cluster at primaryAddr.
	Join(ctx context.Context, node Node, primaryAddr string, force bool) error
}
