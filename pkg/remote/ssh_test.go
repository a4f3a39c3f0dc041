package remote

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

// scripted replaces the SSH transport with canned responses.
type scripted struct {
	code int
	out  []byte
	err  error

	hosts    []string
	commands []string
}

func (s *scripted) run(_ context.Context, host, command string) (int, []byte, error) {
	s.hosts = append(s.hosts, host)
	s.commands = append(s.commands, command)
	return s.code, s.out, s.err
}

func newScriptedRunner(code int, out []byte, err error) (*Runner, *scripted) {
	script := &scripted{code: code, out: out, err: err}
	r := &Runner{port: 22}
	r.run = script.run
	return r, script
}

func peerNode() cluster.Node {
	return cluster.Node{Name: "node2", FQDN: "node2.example.net", Addr: "10.65.0.2", Role: cluster.RolePeer}
}

func TestCheckMember(t *testing.T) {
	r, script := newScriptedRunner(0, nil, nil)

	member, err := r.CheckMember(context.Background(), peerNode())
	require.NoError(t, err)
	assert.True(t, member)
	assert.Equal(t, []string{"10.65.0.2"}, script.hosts)
	assert.Equal(t, []string{"pvecm status"}, script.commands)
}

func TestCheckMemberNotClustered(t *testing.T) {
	r, _ := newScriptedRunner(2, []byte("corosync.conf does not exist"), nil)

	member, err := r.CheckMember(context.Background(), peerNode())
	require.NoError(t, err)
	assert.False(t, member)
}

func TestCheckMemberUnreachable(t *testing.T) {
	r, _ := newScriptedRunner(0, nil,
		fmt.Errorf("dial 10.65.0.2:22: connection refused: %w", cluster.ErrUnreachable))

	_, err := r.CheckMember(context.Background(), peerNode())
	assert.ErrorIs(t, err, cluster.ErrUnreachable)
}

func TestJoin(t *testing.T) {
	r, script := newScriptedRunner(0, nil, nil)

	require.NoError(t, r.Join(context.Background(), peerNode(), "10.65.0.1", false))
	assert.Equal(t, []string{"pvecm add 10.65.0.1 --use_ssh"}, script.commands)
}

func TestJoinForce(t *testing.T) {
	r, script := newScriptedRunner(0, nil, nil)

	require.NoError(t, r.Join(context.Background(), peerNode(), "10.65.0.1", true))
	assert.Equal(t, []string{"pvecm add 10.65.0.1 --use_ssh --force"}, script.commands)
}

func TestJoinNonZeroExit(t *testing.T) {
	r, _ := newScriptedRunner(1, []byte("unable to copy ssh ID\ndetail"), nil)

	err := r.Join(context.Background(), peerNode(), "10.65.0.1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited 1")
	assert.Contains(t, err.Error(), "unable to copy ssh ID")
	assert.NotContains(t, err.Error(), "detail")
}

func TestNewRunnerRequiresUser(t *testing.T) {
	_, err := NewRunner(Config{KeyFile: "/dev/null"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestNewRunnerMissingKey(t *testing.T) {
	_, err := NewRunner(Config{User: "root", KeyFile: "/nonexistent/id_ed25519"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ssh key")
}
