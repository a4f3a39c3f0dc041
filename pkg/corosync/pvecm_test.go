package corosync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

const statusOutput = `Cluster information
-------------------
Name:             acidcluster
Config Version:   4
Transport:        knet
Secure auth:      on

Quorum information
------------------
Date:             Fri Aug 29 10:41:12 2026
Quorum provider:  corosync_votequorum
Nodes:            3
Node ID:          0x00000001
Ring ID:          1.2f
Quorate:          Yes

Votequorum information
----------------------
Expected votes:   3
Highest expected: 3
Total votes:      3
Quorum:           2
Flags:            Quorate

Membership information
----------------------
    Nodeid      Votes Name
0x00000001          1 10.65.0.1 (local)
0x00000002          1 10.65.0.2
0x00000003          1 10.65.0.3
`

const nodesOutput = `
Membership information
----------------------
    Nodeid      Votes Name
         1          1 node1 (local)
         2          1 node2
`

const notClusteredOutput = `Error: Corosync config '/etc/pve/corosync.conf' does not exist - is this node part of a cluster?
`

// scriptedRun records commands and plays back canned responses.
type scriptedRun struct {
	out  []byte
	code int
	err  error

	cmds [][]string
}

func (s *scriptedRun) run(_ context.Context, name string, args ...string) ([]byte, int, error) {
	s.cmds = append(s.cmds, append([]string{name}, args...))
	return s.out, s.code, s.err
}

func newTestService(out []byte, code int) (*Service, *scriptedRun) {
	script := &scriptedRun{out: out, code: code}
	svc := NewService("node1", 5*time.Second)
	svc.run = script.run
	return svc, script
}

func TestStatusParsesMembership(t *testing.T) {
	svc, script := newTestService([]byte(statusOutput), 0)

	ms, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"pvecm", "status"}}, script.cmds)

	assert.True(t, ms.Quorate)
	require.Equal(t, 3, ms.Count())

	local, ok := ms.LocalMember()
	require.True(t, ok)
	assert.Equal(t, 1, local.ID)
	assert.Equal(t, "10.65.0.1", local.Addr)
	assert.Equal(t, 1, local.Votes)

	assert.Equal(t, 2, ms.Members[1].ID)
	assert.False(t, ms.Members[1].Local)
}

func TestStatusNotClustered(t *testing.T) {
	svc, _ := newTestService([]byte(notClusteredOutput), 2)

	ms, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ms.Count())
	assert.False(t, ms.Quorate)
}

func TestStatusToolFailure(t *testing.T) {
	svc, _ := newTestService([]byte("ipcc_send_rec failed: Connection refused"), 255)

	_, err := svc.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited 255")
}

func TestListMembers(t *testing.T) {
	svc, script := newTestService([]byte(nodesOutput), 0)

	names, err := svc.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"node1", "node2"}, names)
	assert.Equal(t, [][]string{{"pvecm", "nodes"}}, script.cmds)
}

func TestCreateInvokesTool(t *testing.T) {
	svc, script := newTestService(nil, 0)

	require.NoError(t, svc.Create(context.Background(), "acidcluster"))
	assert.Equal(t, [][]string{{"pvecm", "create", "acidcluster"}}, script.cmds)
}

func TestAddNodeForce(t *testing.T) {
	svc, script := newTestService(nil, 0)

	require.NoError(t, svc.AddNode(context.Background(), "10.65.0.1", true))
	assert.Equal(t, [][]string{{"pvecm", "add", "10.65.0.1", "--use_ssh", "--force"}}, script.cmds)
}

func TestRemoveNode(t *testing.T) {
	svc, script := newTestService(nil, 0)

	require.NoError(t, svc.RemoveNode(context.Background(), "node3"))
	assert.Equal(t, [][]string{{"pvecm", "delnode", "node3"}}, script.cmds)
}

func TestLeaveRemovesLocalName(t *testing.T) {
	svc, script := newTestService(nil, 0)

	require.NoError(t, svc.Leave(context.Background()))
	assert.Equal(t, [][]string{{"pvecm", "delnode", "node1"}}, script.cmds)
}

func TestQuorumCheck(t *testing.T) {
	svc, _ := newTestService([]byte(statusOutput), 0)
	quorate, err := svc.QuorumCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, quorate)

	svc, _ = newTestService([]byte("Quorate:          No\n"), 1)
	quorate, err = svc.QuorumCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, quorate)
}

func TestRemoveNodeThroughParsedStatus(t *testing.T) {
	// A full pass through the real status parser: the roster carries ring
	// addresses, the operator supplies a short name, and the removal must
	// still reach the delnode primitive.
	svc, script := newTestService([]byte(statusOutput), 0)

	o, err := cluster.NewOrchestrator(cluster.OrchestratorConfig{
		Nodes: []cluster.Node{
			{Name: "node1", Addr: "10.65.0.1", Role: cluster.RolePrimary},
			{Name: "node2", Addr: "10.65.0.2", Role: cluster.RolePeer},
			{Name: "node3", Addr: "10.65.0.3", Role: cluster.RolePeer},
		},
		LocalName: "node1",
		Service:   svc,
	})
	require.NoError(t, err)

	require.NoError(t, o.RemoveNode(context.Background(), "node2"))
	require.Len(t, script.cmds, 2)
	assert.Equal(t, []string{"pvecm", "status"}, script.cmds[0])
	assert.Equal(t, []string{"pvecm", "delnode", "node2"}, script.cmds[1])
}

func TestToolErrorFirstLine(t *testing.T) {
	svc, _ := newTestService([]byte("delnode failed\nmore detail\n"), 1)

	err := svc.RemoveNode(context.Background(), "node2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delnode failed")
	assert.NotContains(t, err.Error(), "more detail")
}
