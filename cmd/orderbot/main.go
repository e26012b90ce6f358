// Command orderbot serves the food-ordering bot over HTTP.
//
// @title        Order Bot API
// @version      1.0
// @description  Conversational food-ordering bot: menu, cart, guided checkout and the staff approval workflow.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-bot/internal/cart"
	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/config"
	"github.com/tbourn/go-order-bot/internal/events"
	httpapi "github.com/tbourn/go-order-bot/internal/http"
	"github.com/tbourn/go-order-bot/internal/http/handlers"
	"github.com/tbourn/go-order-bot/internal/ledger"
	"github.com/tbourn/go-order-bot/internal/observability"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/services"
	"github.com/tbourn/go-order-bot/internal/sysutil"
	"github.com/tbourn/go-order-bot/internal/transport"
)

var version = "dev"

const purgeInterval = 10 * time.Minute

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	orders, err := openOrderStore(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.OrderStore).Msg("open order store")
	}

	cat, err := catalog.Load(cfg.CatalogSource(),
		catalog.WithMediaRoot(cfg.MediaRoot),
		catalog.WithMatchThreshold(cfg.MatchThreshold),
	)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogSource()).Msg("load catalog")
	}
	log.Info().Int("categories", len(cat.Categories())).Msg("catalog loaded")

	var table ledger.Table = ledger.NewMemoryTable()
	if cfg.Ledger.DSN != "" {
		pg, err := ledger.OpenPG(ctx, cfg.Ledger.DSN, cfg.Ledger.Table)
		if err != nil {
			log.Fatal().Err(err).Msg("open ledger")
		}
		defer pg.Close()
		table = pg
	} else {
		log.Warn().Msg("LEDGER_DSN not set; ledger kept in memory")
	}

	lifecycle := openPublisher(func() (events.Publisher, error) {
		p, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			return nil, err
		}
		return p, nil
	}, "kafka")
	defer lifecycle.Close()

	// Kitchen tickets go to the kitchen queue and are mirrored on the topic.
	tickets := openPublisher(func() (events.Publisher, error) {
		p, err := events.DialAMQP(cfg.Events.RabbitURI, cfg.Events.KitchenQueue)
		if err != nil {
			return nil, err
		}
		return p, nil
	}, "amqp")
	defer tickets.Close()

	ch := cfg.Channels
	mail := transport.NewMailbox(db, ch.Staff, ch.Kitchen, ch.Admin)
	engine := &services.Engine{
		Catalog: cat,
		Cart:    &services.CartService{Catalog: cat, Carts: cart.New()},
		Orders:  orders,
		Notify: &services.Notifier{
			Transport:   mail,
			StaffChat:   ch.Staff,
			KitchenChat: ch.Kitchen,
			AdminChat:   ch.Admin,
			Tickets:     events.Multi{tickets, lifecycle},
		},
		Ledger:        ledger.NewSyncer(table),
		Events:        lifecycle,
		OperatorChats: ch.Operators(),
	}
	if err := services.ExportSessions(prometheus.DefaultRegisterer, engine); err != nil {
		log.Warn().Err(err).Msg("session gauge not exported")
	}
	h := handlers.New(handlers.Deps{
		Bot:            engine,
		Mailbox:        mail,
		Orders:         orders,
		Catalog:        cat,
		DB:             db,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	go purgeIdempotency(ctx, db)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("order bot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// openOrderStore picks the pending-order store named by ORDER_STORE.
func openOrderStore(cfg config.Config, db *gorm.DB) (services.OrderStore, error) {
	if cfg.OrderStore == config.StoreFile {
		s, err := repo.OpenFileOrderStore(cfg.OrdersFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", s.Path()).Msg("orders kept in json document")
		return s, nil
	}
	return repo.NewSQLOrderStore(db), nil
}

// openPublisher falls back to a no-op publisher when the broker is not
// configured or unreachable.
func openPublisher(open func() (events.Publisher, error), name string) events.Publisher {
	p, err := open()
	switch {
	case errors.Is(err, events.ErrDisabled):
		log.Info().Str("broker", name).Msg("events disabled")
		return events.Nop{}
	case err != nil:
		log.Error().Err(err).Str("broker", name).Msg("events unavailable")
		return events.Nop{}
	}
	return p
}

func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency keys")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency keys expired")
			}
		}
	}
}
