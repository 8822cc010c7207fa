package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creamline/milkrun/address"
	"github.com/creamline/milkrun/basket"
	"github.com/creamline/milkrun/broker"
	"github.com/creamline/milkrun/db"
	"github.com/creamline/milkrun/geo"
	"github.com/creamline/milkrun/plan"
	"github.com/creamline/milkrun/response"
	"github.com/creamline/milkrun/wallet"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var dotFile string
	var err error

	// Determine running environment and initialize structural logger
	env := os.Getenv("API_ENV")
	production := "production" == env
	if production {
		dotFile = ".env.production"
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()

	// Load configurations from dotFile
	if err := godotenv.Load(dotFile); err != nil {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}

	// Initialize sentry for error reporting
	if dsn := os.Getenv("SENTRY_DSN"); len(dsn) > 0 {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: env,
			Debug:       !production,
		}); err != nil {
			logger.Fatal("Cannot initialize sentry",
				zap.Error(err),
			)
		}
		defer sentry.Flush(time.Second * 2)

		// Attach sentry to zap so we can do automatic error capturing
		cfg := zapsentry.Configuration{
			Level: zapcore.ErrorLevel,
			Tags: map[string]string{
				"component": "api",
			},
		}
		core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
		if err != nil {
			logger.Fatal("Cannot attach sentry to logger",
				zap.Error(err),
			)
		}
		logger = zapsentry.AttachCoreToLogger(core, logger)
	}

	tiers, err := plan.NewTable(os.Getenv("TIERS_JSON"))
	if err != nil {
		logger.Fatal("Cannot load plan tiers",
			zap.Error(err),
		)
	}

	recommender, err := basket.NewRecommender(os.Getenv("BASKET_JSON"))
	if err != nil {
		logger.Fatal("Cannot load basket suggestions",
			zap.Error(err),
		)
	}

	// The wallet collaborator listens on the broker. Without one (local
	// development), credits are only recorded in memory
	var walletNotifier wallet.Notifier
	if amqpURI := os.Getenv("AMQP_URI"); len(amqpURI) > 0 {
		amqpBroker, err := broker.NewAMQPBroker(amqpURI)
		if err != nil {
			logger.Fatal("Cannot connect to Broker",
				zap.Error(err),
			)
		}
		defer amqpBroker.Close()
		walletNotifier = amqpBroker
	} else {
		logger.Warn("AMQP_URI not set, wallet credits will only be recorded in memory")
		walletNotifier = wallet.NewRecorder()
	}

	addressManager, err := address.NewManager(address.ManagerOptions{
		Tiers:  tiers,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize AddressManager",
			zap.Error(err),
		)
	}

	snapshot, err := db.NewSnapshot(logger, os.Getenv("SNAPSHOT_PATH"))
	if err != nil {
		logger.Fatal("Cannot initialize Snapshot",
			zap.Error(err),
		)
	}
	restored, err := snapshot.Load()
	if err != nil {
		logger.Fatal("Cannot load store snapshot",
			zap.Error(err),
		)
	}
	if restored != nil {
		if err := addressManager.Restore(context.Background(), restored); err != nil {
			logger.Fatal("Cannot restore store from snapshot",
				zap.Error(err),
			)
		}
	}

	addressRouter, err := address.NewService(address.ServiceOptions{
		AddressManager: addressManager,
		Wallet:         walletNotifier,
		Recommender:    recommender,
		Resolver:       geo.NewStaticResolver(nil),
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Address Service Router",
			zap.Error(err),
		)
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{os.Getenv("SITE_URL")},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	rootRouter.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, response.ErrMethodNotAllowed())
	})

	rootRouter.Mount("/addresses", addressRouter.Router())

	rootRouter.HandleFunc("/pprof/*", pprof.Index)
	rootRouter.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	rootRouter.HandleFunc("/pprof/profile", pprof.Profile)
	rootRouter.HandleFunc("/pprof/symbol", pprof.Symbol)
	rootRouter.HandleFunc("/pprof/trace", pprof.Trace)

	rootRouter.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "milkrun api")
	})

	srv := &http.Server{
		Handler: rootRouter,
		Addr:    ":42069",
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Cannot start api server",
				zap.Error(err),
			)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Cannot shutdown api server cleanly",
			zap.Error(err),
		)
	}

	// Persist the store so the next boot picks up where we left off
	if err := snapshot.Save(addressManager.Export(context.Background())); err != nil {
		logger.Error("Cannot save store snapshot",
			zap.Error(err),
		)
	}
}
