package cluster

import (
	"errors"
	"fmt"
)

// Precondition errors
var (
	ErrAlreadyMember        = errors.New("local node is already a cluster member")
	ErrNotMember            = errors.New("node is not a cluster member")
	ErrSelfRemoval          = errors.New("cannot remove the local node, use leave instead")
	ErrUnknownNode          = errors.New("node is not in the configured node table")
	ErrConfirmationDeclined = errors.New("operation declined by operator")
)

// Guard and fan-out errors
var (
	ErrQuorumUnsafe = errors.New("operation would leave the cluster without a safe quorum")
	ErrUnreachable  = errors.New("peer is unreachable")
)

// FanoutError reports a fan-out that halted at its first failed peer.
// Peers processed before the failure keep their outcome; peers after it
// are marked not-attempted.
type FanoutError struct {
	Peer    string
	Results []PeerResult
}

func (e *FanoutError) Error() string {
	return fmt.Sprintf("fan-out halted: peer %s failed", e.Peer)
}

// Unwrap exposes the failed peer's underlying error.
func (e *FanoutError) Unwrap() error {
	for _, r := range e.Results {
		if r.Node.Name == e.Peer && r.Err != nil {
			return r.Err
		}
	}
	return nil
}
