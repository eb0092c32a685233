package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/api"
	"github.com/mimir-aip/maintenance-automation/pkg/automation"
	"github.com/mimir-aip/maintenance-automation/pkg/config"
	"github.com/mimir-aip/maintenance-automation/pkg/metadatastore"
	"github.com/mimir-aip/maintenance-automation/pkg/notify"
	"github.com/mimir-aip/maintenance-automation/pkg/queue"
	"github.com/mimir-aip/maintenance-automation/pkg/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("Starting maintenance automation service in %s mode", cfg.Environment)

	// Initialize storage
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("Failed to create storage directory: %v", err)
	}

	store, err := metadatastore.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite storage: %v", err)
	}
	log.Printf("Initialized SQLite storage at: %s", cfg.DatabasePath)

	// Load rules and catalog
	rules, catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Loaded %d automation rules", rules.Len())

	// Notification outbox and transport
	outbox := queue.NewQueue()

	var transport automation.Notifier = notify.NewLogTransport(log.Default())
	var natsTransport *notify.NATSTransport
	if cfg.NATSURL != "" {
		natsTransport, err = notify.DialNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			log.Fatalf("Failed to initialize NATS transport: %v", err)
		}
		transport = natsTransport
		log.Printf("Publishing notifications to NATS at %s (%s.*)", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}

	relay := notify.NewRelay(outbox, transport, cfg.NotifyRatePerSec, cfg.NotifyBurst)
	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(relayCtx)
	}()

	// Initialize engine and sweep scheduler
	engine, err := automation.NewEngine(rules, catalog, store, automation.WithNotifier(outbox))
	if err != nil {
		log.Fatalf("Failed to initialize automation engine: %v", err)
	}

	sweeper, err := scheduler.NewService(engine, store, cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("Failed to initialize maintenance sweep: %v", err)
	}
	sweeper.Start()
	log.Printf("Started maintenance sweep (%s)", cfg.SweepSchedule)

	// Start API server
	server := api.NewServer(store, cfg.Port)

	automationHandler := api.NewAutomationHandler(engine, cfg.StatsDefaultRange)
	server.RegisterHandler("/api/automation/diagnoses", automationHandler.HandleDiagnoses)
	server.RegisterHandler("/api/automation/schedule-checks", automationHandler.HandleScheduleChecks)
	server.RegisterHandler("/api/automation/stats", automationHandler.HandleStats)
	server.RegisterHandler("/api/automation/rules", automationHandler.HandleRules)

	scheduleHandler := api.NewScheduleHandler(sweeper)
	server.RegisterHandler("/api/automation/sweeps", scheduleHandler.HandleSweeps)

	equipmentHandler := api.NewEquipmentHandler(store)
	server.RegisterHandler("/api/equipment", equipmentHandler.HandleEquipment)
	server.RegisterHandler("/api/technicians", equipmentHandler.HandleTechnicians)

	taskHandler := api.NewTaskHandler(store)
	server.RegisterHandler("/api/tasks", taskHandler.HandleTasks)
	server.RegisterHandler("/api/tasks/", taskHandler.HandleTask)

	log.Println("Registered API handlers")

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down maintenance automation service...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	sweeper.Stop()

	stopRelay()
	<-relayDone
	if sent := relay.Flush(ctx); sent > 0 {
		log.Printf("Delivered %d pending notifications", sent)
	}
	if n := outbox.Len(); n > 0 {
		log.Printf("Dropping %d undelivered notifications", n)
	}
	outbox.Close()

	if natsTransport != nil {
		if err := natsTransport.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Printf("Error closing store: %v", err)
	}
}

// loadCatalog returns the built-in rules and catalog, overlaid with the YAML
// file at path when one is configured.
func loadCatalog(path string) (*automation.RuleSet, *automation.Catalog, error) {
	rules := automation.DefaultRules()
	catalog := automation.DefaultCatalog()
	if path == "" {
		return rules, catalog, nil
	}

	file, err := automation.LoadCatalogFile(path)
	if err != nil {
		return nil, nil, err
	}
	catalog, rules, err = file.Apply(catalog, rules)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Applied catalog overlay from %s", path)
	return rules, catalog, nil
}
