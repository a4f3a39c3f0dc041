// Package remote executes membership commands on peer hosts over SSH.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

const (
	// DefaultConnectTimeout bounds the TCP/SSH handshake per peer.
	DefaultConnectTimeout = 5 * time.Second
	// DefaultCommandTimeout bounds a single remote command.
	DefaultCommandTimeout = 2 * time.Minute

	defaultPort = 22
)

// Config describes how to reach peer hosts.
type Config struct {
	// User is the SSH login, typically root on cluster nodes.
	User string
	// Port is the SSH port; zero means 22.
	Port int
	// KeyFile is the path to the private key used for authentication.
	KeyFile string
	// KnownHostsFile pins peer host keys. When empty, host keys are not
	// verified; acceptable only on a trusted management network.
	KnownHostsFile string
	// ConnectTimeout bounds the handshake; zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each remote command; zero means DefaultCommandTimeout.
	CommandTimeout time.Duration
}

// Runner issues commands on peer hosts over an authenticated channel.
// Every call is bounded by connect and command timeouts; failures are
// reported, never retried at this layer.
type Runner struct {
	port           int
	clientConfig   *ssh.ClientConfig
	commandTimeout time.Duration

	// run is swapped out in tests.
	run func(ctx context.Context, host, command string) (int, []byte, error)
}

// NewRunner loads the key material and builds a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}
	keyData, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", cfg.KeyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", cfg.KeyFile, err)
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		hostKeys, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", cfg.KnownHostsFile, err)
		}
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	commandTimeout := cfg.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = DefaultCommandTimeout
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	r := &Runner{
		port: port,
		clientConfig: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeys,
			Timeout:         connectTimeout,
		},
		commandTimeout: commandTimeout,
	}
	r.run = r.dialAndRun
	return r, nil
}

// Run executes a command on the host, returning its exit status and
// combined output. Channel failures wrap cluster.ErrUnreachable.
func (r *Runner) Run(ctx context.Context, host, command string) (int, []byte, error) {
	return r.run(ctx, host, command)
}

func (r *Runner) dialAndRun(ctx context.Context, host, command string) (int, []byte, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(r.port))

	client, err := ssh.Dial("tcp", addr, r.clientConfig)
	if err != nil {
		return 0, nil, fmt.Errorf("dial %s: %v: %w", addr, err, cluster.ErrUnreachable)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return 0, nil, fmt.Errorf("open session on %s: %v: %w", addr, err, cluster.ErrUnreachable)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, runErr := session.CombinedOutput(command)
		done <- result{out, runErr}
	}()

	select {
	case <-ctx.Done():
		// Tear the connection down so the session goroutine unblocks.
		client.Close()
		return 0, nil, fmt.Errorf("command on %s: %v: %w", host, ctx.Err(), cluster.ErrUnreachable)
	case res := <-done:
		if res.err == nil {
			return 0, res.out, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(res.err, &exitErr) {
			return exitErr.ExitStatus(), res.out, nil
		}
		return 0, res.out, fmt.Errorf("run on %s: %v: %w", host, res.err, cluster.ErrUnreachable)
	}
}

// memberProbe exits zero only when the host is part of a cluster.
const memberProbe = "pvecm status"

// CheckMember reports whether the node is already a cluster member.
func (r *Runner) CheckMember(ctx context.Context, node cluster.Node) (bool, error) {
	code, _, err := r.Run(ctx, node.Addr, memberProbe)
	if err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"node": node.Name, "exit": code}).Debug("remote membership probe")
	return code == 0, nil
}

// Join instructs the node to join the cluster at primaryAddr.
func (r *Runner) Join(ctx context.Context, node cluster.Node, primaryAddr string, force bool) error {
	command := fmt.Sprintf("pvecm add %s --use_ssh", primaryAddr)
	if force {
		command += " --force"
	}

	code, out, err := r.Run(ctx, node.Addr, command)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("pvecm add on %s exited %d: %s", node.Name, code, firstLine(out))
	}
	return nil
}

func firstLine(out []byte) string {
	text := strings.TrimSpace(string(out))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}
