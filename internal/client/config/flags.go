package config

import (
	"flag"
	"os"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/flagx"
)

var flagNames = []string{"-a", "-r", "-t", "-d", "-i", "-s", "-k", "-b", "-l", "-m"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   address and port of the backend server
//	-r string   realtime websocket URL
//	-t string   access token
//	-d string   data directory
//	-i int      online check interval in seconds
//	-s int      sync interval in seconds
//	-k int      retention window in days
//	-b string   share link base URL
//	-l string   log level
//	-m int      retry attempts per sync call
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.RealtimeURL, "r", cfg.RealtimeURL, "realtime websocket URL")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.IntVar(&cfg.RetentionDays, "k", cfg.RetentionDays, "days faded notes are kept")
	fs.StringVar(&cfg.ShareBaseURL, "b", cfg.ShareBaseURL, "share link base URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.RetryMaxAttempts, "m", cfg.RetryMaxAttempts, "retry attempts per sync call")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
