package cluster

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// OrchestratorConfig carries everything the orchestrator needs. The node
// table is an explicit immutable value; nothing is read from process-wide
// state.
type OrchestratorConfig struct {
	// Nodes is the static topology, including the local node.
	Nodes []Node
	// LocalName is the short name of the node this process runs on.
	LocalName string
	// Service drives the local membership daemon.
	Service ProtocolService
	// Remote executes membership commands on peer hosts.
	Remote Remote
	// Confirm approves destructive operations. Defaults to AutoConfirm.
	Confirm Confirmer
}

// Validate checks the configuration is usable.
func (c *OrchestratorConfig) Validate() error {
	if c.LocalName == "" {
		return fmt.Errorf("local node name is required")
	}
	if c.Service == nil {
		return fmt.Errorf("protocol service is required")
	}
	found := false
	for _, n := range c.Nodes {
		if n.Name == c.LocalName {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("local node %q: %w", c.LocalName, ErrUnknownNode)
	}
	return nil
}

// Orchestrator sequences guard checks, local protocol calls and remote
// fan-out for every membership transition. It runs one action at a time and
// assumes it is the sole active orchestrator for the duration of a run.
type Orchestrator struct {
	nodes   []Node
	local   string
	svc     ProtocolService
	remote  Remote
	confirm Confirmer
}

// NewOrchestrator builds an orchestrator over an immutable copy of the node
// table.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator config: %w", err)
	}
	confirm := cfg.Confirm
	if confirm == nil {
		confirm = AutoConfirm
	}
	nodes := make([]Node, len(cfg.Nodes))
	copy(nodes, cfg.Nodes)
	return &Orchestrator{
		nodes:   nodes,
		local:   cfg.LocalName,
		svc:     cfg.Service,
		remote:  cfg.Remote,
		confirm: confirm,
	}, nil
}

// Nodes returns the static node table.
func (o *Orchestrator) Nodes() []Node {
	out := make([]Node, len(o.nodes))
	copy(out, o.nodes)
	return out
}

// Peers returns every configured node except the local one.
func (o *Orchestrator) Peers() []Node {
	peers := make([]Node, 0, len(o.nodes))
	for _, n := range o.nodes {
		if n.Name != o.local {
			peers = append(peers, n)
		}
	}
	return peers
}

// Status returns the live roster from the protocol service.
func (o *Orchestrator) Status(ctx context.Context) (Membership, error) {
	return o.svc.Status(ctx)
}

// membership queries the live roster and reports whether the local node is
// currently a member. State is re-read on every transition, never cached.
// The fallback match goes through the node table so rosters that carry ring
// addresses instead of short names still resolve.
func (o *Orchestrator) membership(ctx context.Context) (Membership, bool, error) {
	ms, err := o.svc.Status(ctx)
	if err != nil {
		return Membership{}, false, fmt.Errorf("query cluster status: %w", err)
	}
	if _, ok := ms.LocalMember(); ok {
		return ms, true, nil
	}
	local, _ := o.node(o.local)
	return ms, ms.HasNode(local), nil
}

// Create founds a new cluster under clusterName on the local node.
// Refused with ErrAlreadyMember when the local node already belongs to a
// cluster; the underlying create primitive is not invoked in that case.
func (o *Orchestrator) Create(ctx context.Context, clusterName string) error {
	_, member, err := o.membership(ctx)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyMember
	}

	log.WithField("cluster", clusterName).Info("creating cluster")
	if err := o.svc.Create(ctx, clusterName); err != nil {
		return fmt.Errorf("create cluster %q: %w", clusterName, err)
	}
	return nil
}

// Join joins the local node to the cluster reachable at primaryAddr.
func (o *Orchestrator) Join(ctx context.Context, primaryAddr string, force bool) error {
	_, member, err := o.membership(ctx)
	if err != nil {
		return err
	}
	if member {
		return ErrAlreadyMember
	}

	log.WithField("primary", primaryAddr).Info("joining cluster")
	if err := o.svc.AddNode(ctx, primaryAddr, force); err != nil {
		return fmt.Errorf("join cluster at %s: %w", primaryAddr, err)
	}
	return nil
}

// AddOthers brings every configured peer into the cluster at primaryAddr.
// Peers that are already members are reported as such and skipped; the
// first failing peer halts the operation (see fanout).
func (o *Orchestrator) AddOthers(ctx context.Context, primaryAddr string, force bool) ([]PeerResult, error) {
	if o.remote == nil {
		return nil, fmt.Errorf("no remote channel configured")
	}
	return fanout(ctx, o.remote, o.Peers(), primaryAddr, force)
}

// RemoveNode expels a peer from the cluster. The local node must be a
// member, the target must be a different, currently-member node from the
// configured table, and the quorum safety guard must approve.
func (o *Orchestrator) RemoveNode(ctx context.Context, name string) error {
	if name == o.local {
		return ErrSelfRemoval
	}
	target, known := o.node(name)
	if !known {
		return fmt.Errorf("%q: %w", name, ErrUnknownNode)
	}

	ms, member, err := o.membership(ctx)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("local node: %w", ErrNotMember)
	}
	if !ms.HasNode(target) {
		return fmt.Errorf("%q: %w", name, ErrNotMember)
	}
	if err := CanRemovePeer(ms.Count()); err != nil {
		return fmt.Errorf("remove %q from %d-member cluster: %w", name, ms.Count(), err)
	}
	if !o.confirm(fmt.Sprintf("Remove node %s from the cluster?", name)) {
		return ErrConfirmationDeclined
	}

	log.WithFields(log.Fields{"node": name, "members": ms.Count()}).Info("removing node from cluster")
	if err := o.svc.RemoveNode(ctx, name); err != nil {
		return fmt.Errorf("remove node %q: %w", name, err)
	}
	return nil
}

// Leave withdraws the local node from the cluster, subject to the guard.
func (o *Orchestrator) Leave(ctx context.Context) error {
	ms, member, err := o.membership(ctx)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("local node: %w", ErrNotMember)
	}
	if err := CanLeave(ms.Count()); err != nil {
		return fmt.Errorf("leave %d-member cluster: %w", ms.Count(), err)
	}
	if !o.confirm(fmt.Sprintf("Withdraw %s from the cluster?", o.local)) {
		return ErrConfirmationDeclined
	}

	log.WithFields(log.Fields{"node": o.local, "members": ms.Count()}).Info("leaving cluster")
	if err := o.svc.Leave(ctx); err != nil {
		return fmt.Errorf("leave cluster: %w", err)
	}
	return nil
}

func (o *Orchestrator) node(name string) (Node, bool) {
	for _, n := range o.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}
