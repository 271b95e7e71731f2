package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/config"
	"github.com/devsoft-reco/portal-hija/pkg/contextkeys"
	"github.com/devsoft-reco/portal-hija/pkg/credstore"
	"github.com/devsoft-reco/portal-hija/pkg/guard"
	"github.com/devsoft-reco/portal-hija/pkg/httputil"
	"github.com/devsoft-reco/portal-hija/pkg/identity"
	"github.com/devsoft-reco/portal-hija/pkg/localapi"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
	"github.com/devsoft-reco/portal-hija/pkg/provision"
	"github.com/devsoft-reco/portal-hija/pkg/session"
	"github.com/devsoft-reco/portal-hija/pkg/sso"
)

func main() {
	startupLog := setupStartupLogger()
	startupLog.Info("Starting portal-hija session service")

	cfg, err := config.LoadConfig()
	if err != nil {
		startupLog.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		startupLog.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("OpenTelemetry shutdown failed")
		}
	}()

	store, err := buildCredentialStore(cfg, startupLog)
	if err != nil {
		startupLog.Fatalf("Failed to initialize credential store: %v", err)
	}

	identityClient := identity.NewClient(cfg.Mother.APIURL, logger)

	var db *sql.DB
	var provisioner *provision.Provisioner
	if cfg.Database.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.Database.PostgresURL)
		if err != nil {
			startupLog.Fatalf("Failed to open provisioning database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			startupLog.Fatalf("Failed to reach provisioning database: %v", err)
		}
		if err := provision.EnsureSchema(ctx, db); err != nil {
			startupLog.Fatalf("Failed to ensure provisioning schema: %v", err)
		}
		provisioner = provision.NewProvisioner(db, metrics)
		startupLog.Info("Just-in-time user provisioning enabled")
	} else {
		startupLog.Info("No provisioning database configured, users are not mirrored locally")
	}

	resolver := buildResolver(cfg, identityClient, provisioner, logger)

	sess, err := session.New(ctx, session.Config{
		Store:        store,
		Resolver:     resolver,
		MotherAppURL: cfg.Mother.AppURL,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		startupLog.Fatalf("Failed to initialize session: %v", err)
	}

	router := mux.NewRouter()
	router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)

	sso.NewHandlers(sess, logger).RegisterRoutes(router)
	provision.NewMeHandler(identityClient, syncerOrNil(provisioner), logger).RegisterRoutes(router)

	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Everything else goes through the navigation guard.
	routeGuard := guard.New(guard.NewTable(guard.DefaultRoutes()), sess, logger, metrics)
	router.PathPrefix("/").Handler(routeGuard.Middleware(appHandler(sess)))

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		startupLog.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startupLog.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	startupLog.Info("Received shutdown signal, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		startupLog.Errorf("Graceful shutdown failed: %v", err)
	}
}

func setupStartupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("PORTAL_LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func buildCredentialStore(cfg *config.Config, startupLog *logrus.Logger) (credstore.Store, error) {
	switch cfg.Credentials.Backend {
	case "redis":
		startupLog.Infof("Using redis credential store at %s", cfg.Credentials.RedisAddr)
		return credstore.NewRedisStore(
			cfg.Credentials.RedisAddr,
			cfg.Credentials.RedisPassword,
			cfg.Credentials.RedisDB,
			"portal",
		)
	default:
		startupLog.Infof("Using file credential store in %s", cfg.Credentials.StateDir)
		if err := os.MkdirAll(cfg.Credentials.StateDir, 0o700); err != nil {
			return nil, err
		}
		return credstore.NewFileStore(cfg.Credentials.StateDir)
	}
}

// buildResolver picks the profile resolution path. With a local API URL
// configured, resolution goes through the external child backend's
// /api/me; otherwise it validates against the mother directly and, when
// a database is present, provisions the user in-process.
func buildResolver(cfg *config.Config, identityClient *identity.Client, provisioner *provision.Provisioner, logger *observability.Logger) session.ProfileResolver {
	if cfg.LocalAPI.BaseURL != "" {
		client := localapi.NewClient(
			cfg.LocalAPI.BaseURL,
			contextkeys.GetToken,
			logger,
			localapi.WithListCache(cfg.LocalAPI.CacheSize, cfg.LocalAPI.CacheTTL),
		)
		return func(ctx context.Context, token string) (*auth.Profile, error) {
			return client.Me(contextkeys.WithToken(ctx, token))
		}
	}

	return func(ctx context.Context, token string) (*auth.Profile, error) {
		profile, err := identityClient.FetchProfile(ctx, token)
		if err != nil {
			return nil, err
		}
		if provisioner != nil {
			if synced, err := provisioner.Sync(ctx, profile); err != nil {
				logger.WithError(err).WithField("user_id", profile.ID).Error("failed to sync user locally")
			} else {
				profile = synced
			}
		}
		return profile, nil
	}
}

// syncerOrNil avoids handing a typed-nil *Provisioner to the handler.
func syncerOrNil(p *provision.Provisioner) provision.Syncer {
	if p == nil {
		return nil
	}
	return p
}

// appHandler serves the guarded application shell. The session is ready
// and entitled by the time a request lands here.
func appHandler(sess *session.Session) http.Handler {
	table := guard.NewTable(guard.DefaultRoutes())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"path": r.URL.Path,
		}
		if route, ok := table.Lookup(r.URL.Path); ok {
			payload["title"] = route.Title
			payload["name"] = route.Name
		}
		if user := sess.User(); user != nil {
			payload["user"] = user
		}
		httputil.WriteJSON(w, http.StatusOK, payload)
	})
}
