package cluster

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// fanout walks the peer set in order, checking each peer's membership and
// instructing non-members to join at primaryAddr. Processing is sequential
// and fail-fast: the first failed peer halts the walk, peers not yet
// attempted are marked OutcomeNotAttempted, and the aggregate error names
// the failed peer. Every peer always appears exactly once in the result
// slice, in input order.
func fanout(ctx context.Context, remote Remote, peers []Node, primaryAddr string, force bool) ([]PeerResult, error) {
	results := make([]PeerResult, 0, len(peers))

	for i, peer := range peers {
		outcome, err := addPeer(ctx, remote, peer, primaryAddr, force)
		results = append(results, PeerResult{Node: peer, Outcome: outcome, Err: err})

		if outcome == OutcomeFailed {
			for _, rest := range peers[i+1:] {
				results = append(results, PeerResult{Node: rest, Outcome: OutcomeNotAttempted})
			}
			return results, &FanoutError{Peer: peer.Name, Results: results}
		}
	}

	return results, nil
}

// addPeer resolves one peer to its fan-out outcome.
func addPeer(ctx context.Context, remote Remote, peer Node, primaryAddr string, force bool) (Outcome, error) {
	member, err := remote.CheckMember(ctx, peer)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check membership of %s: %w", peer.Name, err)
	}
	if member {
		log.WithField("node", peer.Name).Info("peer is already a cluster member")
		return OutcomeAlreadyMember, nil
	}

	log.WithFields(log.Fields{"node": peer.Name, "primary": primaryAddr}).Info("joining peer to cluster")
	if err := remote.Join(ctx, peer, primaryAddr, force); err != nil {
		return OutcomeFailed, fmt.Errorf("join %s: %w", peer.Name, err)
	}
	return OutcomeSuccess, nil
}
