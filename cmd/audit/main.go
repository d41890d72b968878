package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/usecase"
	"github.com/rbroggi/racketbuddy/internal/wiring"
	log "github.com/sirupsen/logrus"
)

var dryRun = flag.Bool("dry-run", false, "report missing organizer registrations without repairing them")

func run() error {
	ctx := context.Background()

	conf, err := wiring.LoadConfig()
	if err != nil {
		return err
	}
	wiring.ConfigureLogging(conf.LogLevel)
	// the report goes to stdout
	log.SetOutput(os.Stderr)

	factory := wiring.NewFactory(conf)
	defer factory.Close()

	repo, err := factory.Repository(ctx)
	if err != nil {
		return err
	}
	sender, err := factory.Sender(ctx)
	if err != nil {
		return err
	}

	var opts []usecase.OptArgs
	if sender != nil {
		opts = append(opts, usecase.WithSender(sender))
	}
	ledger := usecase.NewLedger(usecase.LedgerArgs{Repository: repo}, opts...)
	auditor := usecase.NewAuditor(usecase.AuditorArgs{Repository: repo, Ledger: ledger}, opts...)

	report, err := auditor.Run(ctx, model.AuditArgs{DryRun: *dryRun})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Error("audit failed")
		os.Exit(1)
	}
}
