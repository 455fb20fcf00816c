package config

import "time"

// Config holds runtime settings for the note client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the RemoteStore gRPC endpoint.
//   - RealtimeURL: websocket URL of the change feed.
//   - AccessToken: token identifying the user; it also selects the local database.
//   - DataDir: directory holding the per-user SQLite files.
//   - OnlineCheckInterval / SyncInterval: reachability probe and periodic drain.
//   - RetentionDays: how long faded notes are kept before the sweep purges them.
//   - ShareBaseURL: origin used to build share links.
//   - RetryMaxAttempts / RetryInitialDelay: retry policy of sync calls.
type Config struct {
	ServerEndpointAddr  string
	RealtimeURL         string
	AccessToken         string
	DataDir             string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	RetentionDays       int
	ShareBaseURL        string
	LogLevel            string
	RetryMaxAttempts    int
	RetryInitialDelay   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RealtimeURL = "ws://127.0.0.1:8080/v1/realtime"
	c.DataDir = "."
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.RetentionDays = 30
	c.ShareBaseURL = "https://zenote.app"
	c.LogLevel = "warn"
	c.RetryMaxAttempts = 3
	c.RetryInitialDelay = time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
