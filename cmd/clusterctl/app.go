package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/audioactive/ProxmoxVE/config"
	"github.com/audioactive/ProxmoxVE/pkg/cluster"
	"github.com/audioactive/ProxmoxVE/pkg/corosync"
	"github.com/audioactive/ProxmoxVE/pkg/journal"
	"github.com/audioactive/ProxmoxVE/pkg/remote"
	"github.com/audioactive/ProxmoxVE/pkg/status"
)

// app wires configuration into the orchestrator and its collaborators for
// the duration of one invocation.
type app struct {
	cfg  *config.Config
	svc  *corosync.Service
	orch *cluster.Orchestrator
	jrnl *journal.Journal
}

// newApp loads configuration and builds the orchestrator. The SSH channel
// is only established when the action fans out to peers.
func newApp(needRemote bool) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging.Level, cfg.Logging.Format)

	svc := corosync.NewService(cfg.Cluster.LocalNode, cfg.Corosync.CommandTimeout)

	var rmt cluster.Remote
	if needRemote {
		runner, err := remote.NewRunner(remote.Config{
			User:           cfg.SSH.User,
			Port:           cfg.SSH.Port,
			KeyFile:        cfg.SSH.KeyFile,
			KnownHostsFile: cfg.SSH.KnownHostsFile,
			ConnectTimeout: cfg.SSH.ConnectTimeout,
			CommandTimeout: cfg.SSH.CommandTimeout,
		})
		if err != nil {
			return nil, err
		}
		rmt = runner
	}

	confirm := promptConfirm
	if assumeYes {
		confirm = cluster.AutoConfirm
	}

	orch, err := cluster.NewOrchestrator(cluster.OrchestratorConfig{
		Nodes:     cfg.ClusterNodes(),
		LocalName: cfg.Cluster.LocalNode,
		Service:   svc,
		Remote:    rmt,
		Confirm:   confirm,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, svc: svc, orch: orch}

	// The journal is best-effort; a broken journal never blocks an operation.
	if cfg.Journal.Dir != "" {
		jrnl, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			log.WithError(err).Warn("operation journal unavailable")
		} else {
			a.jrnl = jrnl
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.jrnl != nil {
		a.jrnl.Close()
	}
}

// finish records the outcome, renders the post-attempt cluster state and
// passes the error through so the process exits non-zero on failure.
func (a *app) finish(ctx context.Context, action, target string, opErr error) error {
	a.record(ctx, action, target, opErr)
	status.Report(ctx, os.Stdout, a.svc)
	return opErr
}

func (a *app) record(ctx context.Context, action, target string, opErr error) {
	if a.jrnl == nil {
		return
	}
	e := journal.Entry{Action: action, Target: target, Outcome: string(cluster.OutcomeSuccess)}
	if opErr != nil {
		e.Outcome = string(cluster.OutcomeFailed)
		e.Detail = opErr.Error()
	}
	if _, err := a.jrnl.Record(ctx, e); err != nil {
		log.WithError(err).Warn("failed to record operation")
	}
}

// applyTuning runs the config tuning engine with the configured parameters.
func (a *app) applyTuning(ctx context.Context) error {
	tuner := &corosync.Tuner{
		ConfPath:   a.cfg.Corosync.ConfPath,
		Service:    a.svc,
		QuorumWait: a.cfg.Corosync.QuorumWait,
	}
	return tuner.Apply(ctx, a.cfg.Tuning)
}

// maybeApplyTuning applies WAN tuning after a successful membership
// operation when the --wan toggle is set.
func (a *app) maybeApplyTuning(ctx context.Context) error {
	if !wanTuning {
		return nil
	}
	return a.applyTuning(ctx)
}

// reportedNoOp downgrades an already-member result to a reported no-op so
// re-running a half-completed formation continues with the remaining steps
// and exits zero. Real failures pass through untouched.
func reportedNoOp(err error) error {
	if errors.Is(err, cluster.ErrAlreadyMember) {
		fmt.Println("Local node is already a cluster member; nothing to do.")
		return nil
	}
	return err
}

func promptConfirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printPeerResults(results []cluster.PeerResult) {
	for _, r := range results {
		switch r.Outcome {
		case cluster.OutcomeFailed:
			fmt.Printf("  %s: %s (%v)\n", r.Node.Name, r.Outcome, r.Err)
		default:
			fmt.Printf("  %s: %s\n", r.Node.Name, r.Outcome)
		}
	}
}
