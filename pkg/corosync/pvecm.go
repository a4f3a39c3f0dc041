package corosync

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

// DefaultConfPath is where the protocol service keeps the shared,
// replicated configuration document.
const DefaultConfPath = "/etc/pve/corosync.conf"

// notClusteredMarkers appear in tool output when the local node is not part
// of any cluster; that situation is a valid empty status, not an error.
var notClusteredMarkers = []string{
	"Cannot initialize CMAP service",
	"does not exist",
	"not in a cluster",
}

// Service drives the host's pvecm/corosync tooling. Every call is bounded
// by Timeout via exec's context support; the tools are never retried here.
type Service struct {
	localName string
	timeout   time.Duration

	// run is swapped out in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, int, error)
}

// NewService returns a Service for the named local node.
func NewService(localName string, timeout time.Duration) *Service {
	return &Service{
		localName: localName,
		timeout:   timeout,
		run:       runCommand,
	}
}

// runCommand executes a host tool, capturing combined output and exit code.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return out, exitErr.ExitCode(), nil
	}
	return out, -1, err
}

func (s *Service) exec(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	log.WithFields(log.Fields{"cmd": name, "args": strings.Join(args, " ")}).Debug("running cluster tool")
	return s.run(ctx, name, args...)
}

// Create founds a new cluster on the local node.
func (s *Service) Create(ctx context.Context, name string) error {
	out, code, err := s.exec(ctx, "pvecm", "create", name)
	return toolError("pvecm create", out, code, err)
}

// AddNode joins the local node to the cluster at primaryAddr.
func (s *Service) AddNode(ctx context.Context, primaryAddr string, force bool) error {
	args := []string{"add", primaryAddr, "--use_ssh"}
	if force {
		args = append(args, "--force")
	}
	out, code, err := s.exec(ctx, "pvecm", args...)
	return toolError("pvecm add", out, code, err)
}

// RemoveNode expels the named node from the cluster.
func (s *Service) RemoveNode(ctx context.Context, shortName string) error {
	out, code, err := s.exec(ctx, "pvecm", "delnode", shortName)
	return toolError("pvecm delnode", out, code, err)
}

// Leave withdraws the local node by expelling it under its own name.
func (s *Service) Leave(ctx context.Context) error {
	out, code, err := s.exec(ctx, "pvecm", "delnode", s.localName)
	return toolError("pvecm delnode", out, code, err)
}

// Status returns the live roster. An unclustered node yields an empty,
// non-quorate membership and no error.
func (s *Service) Status(ctx context.Context) (cluster.Membership, error) {
	out, code, err := s.exec(ctx, "pvecm", "status")
	if err != nil {
		return cluster.Membership{}, fmt.Errorf("pvecm status: %w", err)
	}
	if code != 0 {
		if notClustered(out) {
			return cluster.Membership{}, nil
		}
		return cluster.Membership{}, toolError("pvecm status", out, code, nil)
	}
	return parseStatus(out), nil
}

// ListMembers returns the short names of all current members.
func (s *Service) ListMembers(ctx context.Context) ([]string, error) {
	out, code, err := s.exec(ctx, "pvecm", "nodes")
	if err != nil {
		return nil, fmt.Errorf("pvecm nodes: %w", err)
	}
	if code != 0 {
		if notClustered(out) {
			return nil, nil
		}
		return nil, toolError("pvecm nodes", out, code, nil)
	}
	members := parseStatus(out).Members
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return names, nil
}

// ReloadConfig asks corosync to re-read the configuration document.
func (s *Service) ReloadConfig(ctx context.Context) error {
	out, code, err := s.exec(ctx, "corosync-cfgtool", "-R")
	return toolError("corosync-cfgtool -R", out, code, err)
}

// QuorumCheck reports whether quorum is currently reachable.
func (s *Service) QuorumCheck(ctx context.Context) (bool, error) {
	out, code, err := s.exec(ctx, "corosync-quorumtool", "-s")
	if err != nil {
		return false, fmt.Errorf("corosync-quorumtool: %w", err)
	}
	// quorumtool exits non-zero when inquorate; the Quorate line is
	// authoritative either way.
	quorate, found := parseQuorate(out)
	if !found && code != 0 {
		return false, toolError("corosync-quorumtool", out, code, nil)
	}
	return quorate, nil
}

func toolError(tool string, out []byte, code int, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if code != 0 {
		return fmt.Errorf("%s exited %d: %s", tool, code, firstLine(out))
	}
	return nil
}

func notClustered(out []byte) bool {
	text := string(out)
	for _, marker := range notClusteredMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func firstLine(out []byte) string {
	text := strings.TrimSpace(string(out))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}

// parseStatus extracts the quorate flag and membership table from pvecm
// status / pvecm nodes output. Rows look like
//
//	0x00000001          1 10.65.0.1 (local)
//	         2          1 node2
//
// with the node id in decimal or hex, a vote count, a name or address, and
// an optional local marker.
func parseStatus(out []byte) cluster.Membership {
	ms := cluster.Membership{}
	ms.Quorate, _ = parseQuorate(out)

	inTable := false
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Membership information") {
			inTable = true
			continue
		}
		if !inTable || trimmed == "" || strings.HasPrefix(trimmed, "-") ||
			strings.HasPrefix(trimmed, "Nodeid") {
			continue
		}
		if m, ok := parseMemberRow(trimmed); ok {
			ms.Members = append(ms.Members, m)
		}
	}
	return ms
}

func parseMemberRow(row string) (cluster.Member, bool) {
	fields := strings.Fields(row)
	if len(fields) < 3 {
		return cluster.Member{}, false
	}

	id, err := parseNodeID(fields[0])
	if err != nil {
		return cluster.Member{}, false
	}
	votes, err := strconv.Atoi(fields[1])
	if err != nil {
		return cluster.Member{}, false
	}

	m := cluster.Member{ID: id, Votes: votes, Name: fields[2]}
	if strings.Contains(fields[2], ".") {
		m.Addr = fields[2]
	}
	for _, f := range fields[3:] {
		if f == "(local)" {
			m.Local = true
		}
	}
	return m, true
}

func parseNodeID(token string) (int, error) {
	if strings.HasPrefix(token, "0x") {
		v, err := strconv.ParseInt(token[2:], 16, 32)
		return int(v), err
	}
	return strconv.Atoi(token)
}

func parseQuorate(out []byte) (quorate bool, found bool) {
	for _, line := range strings.Split(string(out), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Quorate:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(trimmed, "Quorate:"))
		return strings.HasPrefix(value, "Yes"), true
	}
	return false, false
}
