package config

import (
	"flag"
	"os"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/flagx"
)

var flagNames = []string{"-g", "-h", "-d", "-k", "-t", "-u", "-p", "-b", "-r", "-e", "-x", "-m", "-l"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-g string   gRPC bind address (e.g., ":50051")
//	-h string   realtime HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint
//	-x int      export URL expiry, minutes
//	-m int      mutation ledger retention, hours
//	-l string   log level (debug|info|warn|error)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "realtime HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	exportExpiry := fs.Int("x", int(config.ExportURLExpiry.Minutes()), "export URL expiry (in minutes)")
	ledgerRetention := fs.Int("m", int(config.LedgerRetention.Hours()), "mutation ledger retention (in hours)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.ExportURLExpiry = time.Duration(*exportExpiry) * time.Minute
	config.LedgerRetention = time.Duration(*ledgerRetention) * time.Hour
}
