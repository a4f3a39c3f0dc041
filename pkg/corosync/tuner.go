package corosync

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

const (
	// DefaultQuorumWait bounds the post-reload quorum verification.
	DefaultQuorumWait = 10 * time.Second
	// defaultPollInterval is how often quorum is re-checked while waiting.
	defaultPollInterval = 500 * time.Millisecond

	confFileMode = 0o640
)

// Tuner applies a TuningParams set to the shared configuration document,
// asks the protocol service to reload, and verifies quorum is still
// reachable afterwards. It assumes exclusive access to the document for the
// duration of one Apply; no optimistic-concurrency detection is attempted
// against other writers. Failures are surfaced for operator action, never
// rolled back automatically: a rollback would be a second risky edit of the
// shared store.
type Tuner struct {
	// ConfPath is the well-known location of the shared document.
	ConfPath string
	// Service triggers the reload and answers quorum checks.
	Service cluster.ProtocolService
	// QuorumWait bounds the post-reload verification. Zero means
	// DefaultQuorumWait.
	QuorumWait time.Duration

	// pollInterval is overridable in tests.
	pollInterval time.Duration
}

// Apply runs the full edit-verify-reload-verify sequence.
func (t *Tuner) Apply(ctx context.Context, p TuningParams) error {
	raw, err := os.ReadFile(t.ConfPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", t.ConfPath, err)
	}

	updated, err := ApplyTotem(string(raw), p)
	if err != nil {
		return fmt.Errorf("apply tuning to %s: %w", t.ConfPath, err)
	}

	if updated == string(raw) {
		log.WithField("conf", t.ConfPath).Info("tuning parameters already in place")
	} else {
		if err := os.WriteFile(t.ConfPath, []byte(updated), confFileMode); err != nil {
			return fmt.Errorf("write %s: %w", t.ConfPath, err)
		}
	}

	// Re-read rather than trusting the in-memory copy: a partial write or
	// a concurrent writer must show up here as ErrPartialApply.
	written, err := os.ReadFile(t.ConfPath)
	if err != nil {
		return fmt.Errorf("re-read %s: %w", t.ConfPath, err)
	}
	if err := VerifyTotem(string(written), p); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"token":        p.Token,
		"consensus":    p.Consensus,
		"join":         p.Join,
		"hold":         p.Hold,
		"max_messages": p.MaxMessages,
	}).Info("tuning parameters applied, reloading configuration")

	if err := t.Service.ReloadConfig(ctx); err != nil {
		return fmt.Errorf("reload configuration: %w", err)
	}
	return t.awaitQuorum(ctx)
}

// awaitQuorum polls quorum reachability until it succeeds or the bounded
// wait expires.
func (t *Tuner) awaitQuorum(ctx context.Context) error {
	wait := t.QuorumWait
	if wait <= 0 {
		wait = DefaultQuorumWait
	}
	interval := t.pollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.Now().Add(wait)
	for {
		quorate, err := t.Service.QuorumCheck(ctx)
		if err == nil && quorate {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
			}
			return ErrVerificationFailed
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrVerificationFailed, ctx.Err())
		case <-time.After(interval):
		}
	}
}
