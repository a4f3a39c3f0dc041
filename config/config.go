package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
	"github.com/audioactive/ProxmoxVE/pkg/corosync"
)

// Config represents the application configuration
type Config struct {
	Cluster  ClusterConfig         `mapstructure:"cluster"`
	Nodes    []NodeConfig          `mapstructure:"nodes"`
	SSH      SSHConfig             `mapstructure:"ssh"`
	Corosync CorosyncConfig        `mapstructure:"corosync"`
	Tuning   corosync.TuningParams `mapstructure:"tuning"`
	Journal  JournalConfig         `mapstructure:"journal"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// ClusterConfig identifies the cluster and the node this process runs on
type ClusterConfig struct {
	Name      string `mapstructure:"name"`
	LocalNode string `mapstructure:"local_node"`
}

// NodeConfig is one entry of the static node table
type NodeConfig struct {
	Name string `mapstructure:"name"`
	FQDN string `mapstructure:"fqdn"`
	Addr string `mapstructure:"addr"`
	Role string `mapstructure:"role"`
}

// SSHConfig contains the remote-channel settings
type SSHConfig struct {
	User           string        `mapstructure:"user"`
	Port           int           `mapstructure:"port"`
	KeyFile        string        `mapstructure:"key_file"`
	KnownHostsFile string        `mapstructure:"known_hosts_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// CorosyncConfig contains protocol-service settings
type CorosyncConfig struct {
	ConfPath       string        `mapstructure:"conf_path"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	QuorumWait     time.Duration `mapstructure:"quorum_wait"`
}

// JournalConfig contains operation-journal settings
type JournalConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("clusterctl")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/clusterctl")
	}

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CLUSTERCTL")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// SSH defaults
	viper.SetDefault("ssh.user", "root")
	viper.SetDefault("ssh.port", 22)
	viper.SetDefault("ssh.key_file", "/root/.ssh/id_rsa")
	viper.SetDefault("ssh.connect_timeout", "5s")
	viper.SetDefault("ssh.command_timeout", "2m")

	// Protocol service defaults
	viper.SetDefault("corosync.conf_path", corosync.DefaultConfPath)
	viper.SetDefault("corosync.command_timeout", "30s")
	viper.SetDefault("corosync.quorum_wait", "10s")

	// WAN tuning defaults
	wan := corosync.WANDefaults()
	viper.SetDefault("tuning.token", wan.Token)
	viper.SetDefault("tuning.consensus", wan.Consensus)
	viper.SetDefault("tuning.join", wan.Join)
	viper.SetDefault("tuning.hold", wan.Hold)
	viper.SetDefault("tuning.max_messages", wan.MaxMessages)

	// Journal defaults
	viper.SetDefault("journal.dir", "/var/lib/clusterctl/journal")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// Validate checks the node table and cluster identity are usable
func (c *Config) Validate() error {
	if c.Cluster.LocalNode == "" {
		return fmt.Errorf("cluster.local_node is required")
	}
	if len(c.Nodes) < 3 {
		return fmt.Errorf("at least 3 nodes are required, got %d", len(c.Nodes))
	}

	seen := make(map[string]bool)
	primaries := 0
	localFound := false
	for i, n := range c.Nodes {
		if n.Name == "" || n.Addr == "" {
			return fmt.Errorf("nodes[%d]: name and addr are required", i)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = true

		switch cluster.Role(n.Role) {
		case cluster.RolePrimary:
			primaries++
		case cluster.RolePeer, "":
		default:
			return fmt.Errorf("nodes[%d]: unknown role %q", i, n.Role)
		}
		if n.Name == c.Cluster.LocalNode {
			localFound = true
		}
	}
	if primaries != 1 {
		return fmt.Errorf("exactly one node must have role %q, got %d", cluster.RolePrimary, primaries)
	}
	if !localFound {
		return fmt.Errorf("cluster.local_node %q is not in the node table", c.Cluster.LocalNode)
	}
	return c.Tuning.Validate()
}

// ClusterNodes converts the node table into the orchestrator's type
func (c *Config) ClusterNodes() []cluster.Node {
	nodes := make([]cluster.Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		role := cluster.Role(n.Role)
		if role == "" {
			role = cluster.RolePeer
		}
		nodes = append(nodes, cluster.Node{Name: n.Name, FQDN: n.FQDN, Addr: n.Addr, Role: role})
	}
	return nodes
}

// PrimaryAddr returns the address of the primary node
func (c *Config) PrimaryAddr() string {
	for _, n := range c.Nodes {
		if cluster.Role(n.Role) == cluster.RolePrimary {
			return n.Addr
		}
	}
	return ""
}
