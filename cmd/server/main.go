// @title           Case Engine API
// @version         1.0
// @description     Back office for immigration cases: leads, clients, case lifecycle, documents, archival and the client portal.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/brasil-legalize/case-engine/docs"
	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/cases"
	"github.com/brasil-legalize/case-engine/internal/clients"
	"github.com/brasil-legalize/case-engine/internal/config"
	"github.com/brasil-legalize/case-engine/internal/credentials"
	"github.com/brasil-legalize/case-engine/internal/documents"
	"github.com/brasil-legalize/case-engine/internal/leads"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/observability"
	"github.com/brasil-legalize/case-engine/internal/portal"
	"github.com/brasil-legalize/case-engine/internal/storage"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/internal/uploadlinks"
	"github.com/brasil-legalize/case-engine/pkg/database"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.AdminEmail != "" {
		created, err := auth.EnsureAdmin(ctx, st, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("seeded admin operator", zap.String("email", cfg.AdminEmail))
		}
	}

	eng := lifecycle.New(st, credentials.NewIssuer(),
		lifecycle.WithLogger(logger.Named("lifecycle")),
		lifecycle.WithRecorder(metrics),
		lifecycle.WithRetention(cfg.ArchiveRetention),
	)

	// Upload-link cache is optional
	docCfg := documents.Config{
		SignedURLLifetime: cfg.SignedURLLifetime,
		MaxFileBytes:      int64(cfg.MaxUploadMB) << 20,
		Logger:            logger.Named("documents"),
	}
	checks := map[string]observability.Pinger{}
	if cfg.RedisURL != "" {
		links, err := uploadlinks.NewRegistry(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer links.Close()
		docCfg.Links = links
		checks["redis"] = links
	} else {
		logger.Info("REDIS_URL not set; upload links resolve from the database")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		logger.Warn("Supabase storage is not configured; document uploads will fail")
	}
	docCfg.Objects = storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    (cfg.MaxUploadMB + 1) << 20,
	})
	app.Use(recover.New())
	app.Use(observability.RequestLogger(logger.Named("http"), metrics))

	app.Get("/health", observability.Health(checks))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	api := app.Group("/api")
	jwt := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	op := jwt.RequireAuth()
	admin := auth.RequireRole(models.RoleAdmin)

	// Auth
	authH := auth.NewHandler(st, jwt)
	api.Post("/login", authH.Login)
	api.Get("/me", op, authH.Me)
	api.Post("/operators", op, admin, authH.CreateOperator)

	// Leads
	leadH := leads.NewHandler(eng)
	api.Post("/leads", leadH.Create) // public intake
	api.Get("/leads", op, leadH.List)
	api.Get("/leads/:id", op, leadH.Get)
	api.Post("/leads/:id/convert", op, leadH.Convert)

	// Cases
	caseH := cases.NewHandler(eng)
	api.Post("/cases", op, caseH.Create)
	api.Get("/cases", op, caseH.List)
	api.Get("/cases/:id", op, caseH.GetDetail)
	api.Post("/cases/:id/status", op, caseH.ChangeStatus)
	api.Post("/cases/:id/reopen", op, caseH.Reopen)
	api.Post("/cases/:id/notes", op, caseH.AddNote)
	api.Get("/cases/:id/archive", op, caseH.ArchiveInfo)
	api.Post("/archive/sweep", op, admin, caseH.Sweep)

	// Documents
	docH := documents.NewHandler(eng, docCfg)
	api.Post("/cases/:id/documents", op, docH.Upload)
	api.Get("/cases/:id/documents", op, docH.List)
	api.Post("/cases/:id/document-requests", op, docH.CreateRequest)
	api.Get("/cases/:id/document-requests", op, docH.ListRequests)
	api.Get("/documents/:id", op, docH.Get)
	api.Get("/documents/:id/signed-url", op, docH.SignedURL)
	api.Post("/documents/:id/review", op, docH.Review)
	// Upload links (token is the credential)
	api.Get("/upload/:token", docH.ShowLink)
	api.Post("/upload/:token/documents", docH.UploadViaLink)

	// Clients
	clientH := clients.NewHandler(eng)
	api.Post("/clients", op, clientH.Create)
	api.Get("/clients/:id", op, clientH.Get)
	api.Post("/clients/:id/notes", op, clientH.AddNote)
	api.Post("/clients/:id/communications", op, clientH.LogCommunication)
	api.Post("/clients/:id/payments", op, clientH.RecordPayment)

	// Portal
	api.Post("/portal/view", portal.NewHandler(eng).View)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server running", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error {
		sweep(gctx, eng, cfg.ArchiveSweepInterval, logger.Named("archive"))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	case config.StorePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db), nil
	}
	return nil, errors.New("STORE must be postgres or memory, got " + cfg.Store)
}

// sweep archives due cases on every tick until ctx is done.
func sweep(ctx context.Context, eng *lifecycle.Engine, every time.Duration, logger *zap.Logger) {
	if every <= 0 {
		logger.Info("archive sweep disabled")
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := eng.EnforceArchival(ctx)
			if err != nil {
				logger.Error("archive sweep", zap.Int("archived", n), zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("archive sweep", zap.Int("archived", n))
			}
		}
	}
}
