package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// DefaultEndpointURL points at the managed query endpoint of a fixed region.
// Matches the agent's historical default; override per deployment.
const DefaultEndpointURL = "https://athena.us-east-1.amazonaws.com:443"

// EndpointConfiguration describes the remote statement-execution endpoint.
type EndpointConfiguration struct {
	Driver     string `toml:"driver"`      // database/sql driver name ("trino", "mysql")
	URL        string `toml:"url"`         // endpoint URL / DSN base
	AccessKey  string `toml:"access_key"`  // static credentials; empty = ambient identity
	SecretKey  string `toml:"secret_key"`  //
	StagingDir string `toml:"staging_dir"` // object-store staging location for query results
}

// SyncConfiguration controls event filtering and processor pacing.
type SyncConfiguration struct {
	DropTableIfExists     bool   `toml:"drop_table_if_exists"`
	CreateMissingDB       bool   `toml:"create_missing_db"`
	SuppressAllDropEvents bool   `toml:"suppress_all_drop_events"`
	DBWhitelist           string `toml:"db_whitelist"` // comma-separated database names
	NoEventSleepMS        int    `toml:"no_event_sleep_ms"`
	ReconnectSleepMS      int    `toml:"reconnect_sleep_ms"`
}

// ListenerConfiguration for the inbound HTTP event receiver.
type ListenerConfiguration struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
}

// NotifyConfiguration for outbound chat notifications.
type NotifyConfiguration struct {
	SlackWebhook string `toml:"slack_webhook"` // empty disables notifications
	Channel      string `toml:"channel"`
}

// AuditSinkConfiguration describes one audit trail destination.
type AuditSinkConfiguration struct {
	Name    string   `toml:"name"`
	Type    string   `toml:"type"`   // "log", "nats" or "kafka"
	Format  string   `toml:"format"` // "json" or "msgpack"
	Topic   string   `toml:"topic"`
	NatsURL string   `toml:"nats_url"`
	Brokers []string `toml:"brokers"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Configuration is the main configuration structure
type Configuration struct {
	AgentID uint64 `toml:"agent_id"`

	Endpoint   EndpointConfiguration    `toml:"endpoint"`
	Sync       SyncConfiguration        `toml:"sync"`
	Listener   ListenerConfiguration    `toml:"listener"`
	Notify     NotifyConfiguration      `toml:"notify"`
	AuditSinks []AuditSinkConfiguration `toml:"audit_sink"`
	Logging    LoggingConfiguration     `toml:"logging"`
	Prometheus PrometheusConfiguration  `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag  = flag.String("config", "config.toml", "Path to configuration file")
	EndpointURLFlag = flag.String("endpoint-url", "", "Remote endpoint URL (overrides config)")
	ListenerPort    = flag.Int("listener-port", 0, "Event receiver port (overrides config)")
)

// Default configuration
var Config = &Configuration{
	AgentID: 0, // Auto-generate

	Endpoint: EndpointConfiguration{
		Driver: "trino",
		URL:    DefaultEndpointURL,
	},

	Sync: SyncConfiguration{
		DropTableIfExists:     false,
		CreateMissingDB:       true,
		SuppressAllDropEvents: false,
		DBWhitelist:           "",
		NoEventSleepMS:        1000,
		ReconnectSleepMS:      1000,
	},

	Listener: ListenerConfiguration{
		BindAddress: "0.0.0.0",
		Port:        8390,
	},

	Notify: NotifyConfiguration{},

	AuditSinks: []AuditSinkConfiguration{
		{Name: "log", Type: "log", Format: "json"},
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
		Address: "0.0.0.0",
		Port:    9090,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	// Load from file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *EndpointURLFlag != "" {
		Config.Endpoint.URL = *EndpointURLFlag
	}
	if *ListenerPort != 0 {
		Config.Listener.Port = *ListenerPort
	}

	// Auto-generate agent ID if not set
	if Config.AgentID == 0 {
		var err error
		Config.AgentID, err = generateAgentID()
		if err != nil {
			return fmt.Errorf("failed to generate agent ID: %w", err)
		}
		log.Info().Uint64("agent_id", Config.AgentID).Msg("Auto-generated agent ID")
	}

	return nil
}

// generateAgentID creates a unique agent ID based on machine ID
func generateAgentID() (uint64, error) {
	id, err := machineid.ProtectedID("hiveline")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.Endpoint.URL == "" {
		return fmt.Errorf("endpoint URL is required")
	}

	if _, err := url.Parse(Config.Endpoint.URL); err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if Config.Endpoint.Driver == "" {
		return fmt.Errorf("endpoint driver is required")
	}

	if Config.Endpoint.AccessKey != "" && Config.Endpoint.SecretKey == "" {
		return fmt.Errorf("endpoint secret key is required when access key is set")
	}

	if Config.Listener.Port < 1 || Config.Listener.Port > 65535 {
		return fmt.Errorf("invalid listener port: %d", Config.Listener.Port)
	}

	if Config.Sync.NoEventSleepMS < 1 {
		return fmt.Errorf("no-event sleep must be >= 1ms")
	}

	if Config.Sync.ReconnectSleepMS < 1 {
		return fmt.Errorf("reconnect sleep must be >= 1ms")
	}

	if Config.Prometheus.Enabled && (Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid prometheus port: %d", Config.Prometheus.Port)
	}

	for _, sink := range Config.AuditSinks {
		switch sink.Type {
		case "log":
		case "nats":
			if sink.NatsURL == "" {
				return fmt.Errorf("audit sink %q: nats_url is required", sink.Name)
			}
		case "kafka":
			if len(sink.Brokers) == 0 {
				return fmt.Errorf("audit sink %q: at least one broker is required", sink.Name)
			}
		default:
			return fmt.Errorf("audit sink %q: unknown type %q", sink.Name, sink.Type)
		}
	}

	return nil
}

// Whitelist returns the set of database names eligible for replication.
// An empty whitelist syncs nothing; membership is an exact string match.
func (s *SyncConfiguration) Whitelist() map[string]struct{} {
	set := make(map[string]struct{})
	if strings.TrimSpace(s.DBWhitelist) == "" {
		return set
	}
	for _, db := range strings.Split(s.DBWhitelist, ",") {
		db = strings.TrimSpace(db)
		if db != "" {
			set[db] = struct{}{}
		}
	}
	return set
}

// DSN builds the connection string for the configured endpoint. Static
// credentials, when present, ride in the URL userinfo; otherwise the driver
// falls back to the process' ambient identity. The staging dir is passed
// through as a query parameter for drivers that stage results in object
// storage.
func (e *EndpointConfiguration) DSN() (string, error) {
	u, err := url.Parse(e.URL)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if e.AccessKey != "" {
		u.User = url.UserPassword(e.AccessKey, e.SecretKey)
	}

	if e.StagingDir != "" {
		q := u.Query()
		q.Set("s3_staging_dir", e.StagingDir)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
