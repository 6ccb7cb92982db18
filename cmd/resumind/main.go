package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"resumind/internal/cli"
	"resumind/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRuntime(config.Load()), os.Args[1:])
	stop()
	os.Exit(code)
}
