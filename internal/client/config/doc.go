// Package config loads runtime configuration for the note client.
//
// Sources and precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Intervals accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "realtime_url": "ws://127.0.0.1:8080/v1/realtime",
//	  "access_token": "eyJ...",
//	  "data_dir": "/home/me/.zenote",
//	  "online_check_interval": "3s",
//	  "sync_interval": "30s",
//	  "retention_days": 30,
//	  "share_base_url": "https://zenote.app"
//	}
package config
