package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/anbuneel/zenote-sub001/internal/flagx"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/server"
	"github.com/anbuneel/zenote-sub001/internal/server/config"
	"github.com/anbuneel/zenote-sub001/internal/server/repositories/repomanager"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(mintToken(cfg, os.Args[2:]))
	}

	logger := logging.Setup(cfg.LogLevel, "json")

	app, err := server.NewApp(ctx, cfg, repomanager.NewPostgresRepositoryManager(), logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}

func mintToken(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id to issue the token for")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-user"})); err != nil {
		return 2
	}

	token, err := server.MintToken(cfg, *userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
