// The trigger is invoked by cron to kick off the job service's synchronous
// run. It exits 0 when the run completed or was already executing, and 1 when
// the service was unreachable or the run failed after all retries.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cfpulse/cfpulse/internal/trigger"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}
	logg := logger.New(os.Stdout, logger.LevelInfo, fmt.Sprintf("TRIGGER-%s", hostname), nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := trigger.LoadConfig()
	if err != nil {
		logg.Error(ctx, "invalid configuration", "error", err)
		os.Exit(trigger.ExitFailure)
	}

	code, err := trigger.New(cfg, logg).Run(ctx)
	if err != nil {
		logg.Error(ctx, "trigger cycle failed", "error", err)
	}
	os.Exit(code)
}
