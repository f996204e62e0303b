package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/hdx-scraper-peacesecurity/internal/api/http"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/catalog"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/config"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/download"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/peacesecurity"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/scheduler"
	"github.com/i474232898/hdx-scraper-peacesecurity/internal/store"
)

const serviceName = "hdx-scraper-peacesecurity"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	flag.BoolVar(&cfg.Save, "save", cfg.Save, "save downloaded data")
	flag.BoolVar(&cfg.UseSaved, "use-saved", cfg.UseSaved, "use saved data")
	flag.Parse()

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	backoff := download.DefaultBackoff
	backoff.MaxRetries = cfg.HTTPMaxRetries
	retriever, err := download.NewRetriever(httpClient, download.Options{
		SavedDir:  cfg.SavedDataDir(),
		Save:      cfg.Save,
		UseSaved:  cfg.UseSaved,
		UserAgent: cfg.UserAgent,
		Backoff:   backoff,
	})
	if err != nil {
		log.Fatalf("failed to create retriever: %v", err)
	}

	var client catalog.Client
	if cfg.DryRun {
		log.Printf("INFO: dry run, catalog records go to %s", cfg.CatalogDir())
		client, err = catalog.NewDryRunClient(cfg.CatalogDir())
		if err != nil {
			log.Fatalf("failed to create dry run catalog: %v", err)
		}
	} else {
		client = catalog.NewCKANClient(catalog.CKANConfig{
			Site:      cfg.HDXSite,
			APIKey:    cfg.HDXKey,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
		})
	}

	state, err := store.OpenState(cfg.StatePath, cfg.StateDefaultDate)
	if err != nil {
		log.Fatalf("failed to open state: %v", err)
	}

	defaults, err := catalog.LoadStaticDefaults(cfg.DatasetStaticConfig)
	if err != nil {
		log.Fatalf("failed to load dataset defaults: %v", err)
	}

	service := peacesecurity.NewService(retriever, client, state, peacesecurity.ServiceOptions{
		Project:        cfg.Project,
		Folder:         cfg.RunFolder(),
		WhereToStart:   cfg.WhereToStart,
		StaticDefaults: defaults,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ScheduleInterval <= 0 {
		if _, err := service.Run(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	// Scheduler that periodically runs the scraper.
	sched := scheduler.New(cfg.ScheduleInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	httpapi.RegisterRoutes(app, service, state)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
