// main.go runs the sync loop with no flags: ./config.json next to the
// binary, service-account credentials, forever until killed or an error
// ends it. cmd/csync offers the same loop plus one-shot commands.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chmdznr/csync/internal/app"
	"github.com/chmdznr/csync/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, app.Options{ConfigPath: config.DefaultPath})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	runner, err := a.Runner(ctx)
	if err != nil {
		a.Log.WithError(err).Fatal("Failed to build sync loop")
	}

	if err := runner.Run(ctx); err != nil {
		a.Log.WithError(err).Error("Sync loop stopped")
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("exit complete")
}
