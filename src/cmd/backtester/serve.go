package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/backtester-api/router"
	"github.com/jiaming2012/strategy-engine/src/backtester-api/services"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
	"github.com/jiaming2012/strategy-engine/src/eventproducers"
	"github.com/jiaming2012/strategy-engine/src/eventpubsub"
	"github.com/jiaming2012/strategy-engine/src/eventservices"
	"github.com/jiaming2012/strategy-engine/src/strategy"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
	"github.com/jiaming2012/strategy-engine/src/utils"
	"github.com/jiaming2012/strategy-engine/src/worker"
)

const cleanupInterval = time.Minute

func newManagerConfig(cfg *eventmodels.LiveConfigYAML) services.LiveSessionManagerConfig {
	managerCfg := services.DefaultLiveSessionManagerConfig()

	if cfg.MaxSessions > 0 {
		managerCfg.MaxSessions = cfg.MaxSessions
	}

	if cfg.SessionTTL > 0 {
		managerCfg.SessionTTL = cfg.SessionTTL
	}

	if cfg.StopTimeout > 0 {
		managerCfg.StopTimeout = cfg.StopTimeout
	}

	return managerCfg
}

// exchangeFactory returns one exchange per session. Coinbase sessions each own a websocket
// that is closed when the session stops; polygon sessions share one REST client.
func exchangeFactory(ctx context.Context, cfg *eventmodels.LiveConfigYAML) (func(symbol string) (models.IExchange, error), error) {
	switch cfg.Exchange {
	case eventmodels.ExchangeCoinbase:
		url := utils.GetEnvOrDefault("COINBASE_WS_URL", worker.CoinbaseAdvancedTradeURL)
		return func(symbol string) (models.IExchange, error) {
			exchange := worker.NewCoinbaseTickerExchange(url, []string{symbol})
			if err := exchange.Connect(ctx); err != nil {
				return nil, err
			}
			return exchange, nil
		}, nil
	default:
		apiKey, err := utils.GetEnv("POLYGON_API_KEY")
		if err != nil {
			return nil, err
		}

		exchange := eventservices.NewPolygonExchange(eventservices.NewPolygonClient(apiKey, nil))
		return func(string) (models.IExchange, error) {
			return exchange, nil
		}, nil
	}
}

func startJournal(ctx context.Context, bus *eventpubsub.Bus) func() {
	url := os.Getenv("EVENTSTOREDB_URL")
	if url == "" {
		log.Info("EVENTSTOREDB_URL not set, live events will not be journaled")
		return func() {}
	}

	db, err := eventproducers.NewEsdbClient(url)
	if err != nil {
		log.Errorf("failed to connect to eventstoredb: %v", err)
		return func() {}
	}

	journal := eventproducers.NewEsdbJournal(ctx, db, bus)
	if err := journal.Start(); err != nil {
		log.Errorf("failed to start journal: %v", err)
		db.Close()
		return func() {}
	}

	return func() {
		journal.Stop()
		appended, failures := journal.Stats()
		log.Infof("journal: %d events appended, %d failed", appended, failures)

		if err := db.Close(); err != nil {
			log.Errorf("failed to close eventstoredb client: %v", err)
		}
	}
}

func runServe(ctx context.Context, cancel context.CancelFunc, cfg *eventmodels.LiveConfigYAML) error {
	bus := eventpubsub.New()
	stopJournal := startJournal(ctx, bus)
	defer stopJournal()

	managerCfg := newManagerConfig(cfg)
	manager := services.NewLiveSessionManager(ctx, managerCfg, bus, telemetry.NewEngineMetrics())

	newExchange, err := exchangeFactory(ctx, cfg)
	if err != nil {
		return err
	}

	for _, s := range cfg.Sessions {
		strat, err := strategy.NewStrategy(s.Symbol, s.Strategy)
		if err != nil {
			return err
		}

		exchange, err := newExchange(s.Symbol)
		if err != nil {
			return err
		}

		session, err := manager.CreateSession(s.LiveSessionMeta, exchange, strat)
		if err != nil {
			return err
		}

		log.Infof("started session %s for %s (%s)", session.ID, s.Symbol, s.Strategy.Name)
	}

	r := mux.NewRouter()
	router.SetupHandler(r.PathPrefix("/sessions").Subrouter(), manager)

	srv := &http.Server{
		Handler: otelhttp.NewHandler(r, serviceName),
		Addr:    cfg.ListenAddr,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := manager.CleanupExpired(); n > 0 {
					log.Infof("evicted %d expired sessions", n)
				}
			}
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Info("Main: init complete")

	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shutdown server: %v", err)
	}

	leaked := manager.Shutdown(managerCfg.StopTimeout)
	cancel()

	log.Infof("Main: gracefully stopped (%d sessions leaked)", leaked)
	return nil
}
