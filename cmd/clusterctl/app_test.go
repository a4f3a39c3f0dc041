package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

func TestReportedNoOpAlreadyMember(t *testing.T) {
	// Re-running a half-completed formation must continue past the
	// already-member result instead of exiting non-zero.
	assert.NoError(t, reportedNoOp(cluster.ErrAlreadyMember))
	assert.NoError(t, reportedNoOp(fmt.Errorf("join cluster at 10.0.0.1: %w", cluster.ErrAlreadyMember)))
}

func TestReportedNoOpPassesThroughFailures(t *testing.T) {
	err := errors.New("pvecm create exited 1")
	assert.Equal(t, err, reportedNoOp(err))
	assert.ErrorIs(t, reportedNoOp(cluster.ErrQuorumUnsafe), cluster.ErrQuorumUnsafe)
	assert.NoError(t, reportedNoOp(nil))
}
