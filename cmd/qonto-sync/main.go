package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ateliernord/finops_backend/config"
	"github.com/ateliernord/finops_backend/invoiceai"
	"github.com/ateliernord/finops_backend/models"
	"github.com/ateliernord/finops_backend/qontosync"
)

func main() {
	scopeFlag := flag.String("scope", "all", "Sync scope: all, clients, client_invoices or supplier_invoices.")
	classify := flag.Bool("classify", true, "Schedule classification of newly synced supplier invoices and wait for it.")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()

	scope := models.SyncScope(strings.TrimSpace(*scopeFlag))
	if !scope.Valid() {
		fmt.Fprintf(os.Stderr, "unknown sync scope: %s\n", *scopeFlag)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	qonto, err := qontosync.NewClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "qonto client: %v\n", err)
		os.Exit(1)
	}

	var classifier *invoiceai.Classifier
	var queue *invoiceai.CallQueue
	if *classify {
		invoker, err := invoiceai.NewAnthropicInvoker(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_MODEL"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "document model disabled: %v\n", err)
		} else {
			queue = invoiceai.NewCallQueue(
				time.Duration(config.IntFromEnv("AI_MIN_CALL_INTERVAL_MS", 15000))*time.Millisecond,
				logger,
			)
			defer queue.Close()
			classifier = invoiceai.NewClassifier(queue, invoker, logger)
		}
	}

	scheduler := qontosync.NewScheduler(logger)
	// One-shot run against a dedicated database; no Redis lock needed.
	service := qontosync.NewSyncService(db, qonto, classifier, scheduler, nil, logger)

	run, err := service.RunSync(ctx, scope, models.SyncTriggeredManual)
	if run != nil {
		fmt.Printf("run %d: status=%s processed=%d created=%d updated=%d skipped=%d\n",
			run.ID, run.Status, run.RecordsProcessed, run.RecordsCreated, run.RecordsUpdated, run.RecordsSkipped)
		if run.ErrorMessage != "" {
			fmt.Fprintln(os.Stderr, run.ErrorMessage)
		}
	}
	if err != nil {
		scheduler.Close()
		os.Exit(1)
	}

	if classifier != nil {
		scheduler.Wait()
	}
	scheduler.Close()
}
