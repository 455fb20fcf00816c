package config

import (
	"github.com/anbuneel/zenote-sub001/internal/flagx"
	"github.com/anbuneel/zenote-sub001/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration file.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	RealtimeURL         string         `json:"realtime_url"`
	AccessToken         string         `json:"access_token"`
	DataDir             string         `json:"data_dir"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	RetentionDays       int            `json:"retention_days"`
	ShareBaseURL        string         `json:"share_base_url"`
	LogLevel            string         `json:"log_level"`
	RetryMaxAttempts    int            `json:"retry_max_attempts"`
	RetryInitialDelay   timex.Duration `json:"retry_initial_delay"`
}

// parseJson overlays cfg with the file named by -c or -config. Fields the
// file omits keep their values. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig
	if err := flagx.LoadJSON(jsonConfigFile, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.RealtimeURL, jc.RealtimeURL)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.ShareBaseURL, jc.ShareBaseURL)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.RetryInitialDelay.Duration > 0 {
		cfg.RetryInitialDelay = jc.RetryInitialDelay.Duration
	}
	if jc.RetentionDays > 0 {
		cfg.RetentionDays = jc.RetentionDays
	}
	if jc.RetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = jc.RetryMaxAttempts
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
