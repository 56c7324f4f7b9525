// Worker is the background process behind the push subscription: it listens on
// the subscription endpoint, decrypts deliveries, shows track notifications, and
// routes clicks back to an open page context. Set SERVER_URL and PUSH_LISTEN_ADDR.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"

	"family-radio/companion/internal/config"
	"family-radio/companion/internal/db"
	"family-radio/companion/internal/db/migrate"
	"family-radio/companion/internal/notify"
	"family-radio/companion/internal/notify/clients"
	"family-radio/companion/internal/notify/display"
	"family-radio/companion/internal/push/platform"
	stationclient "family-radio/companion/internal/station/client"
	stationrepo "family-radio/companion/internal/station/repository"
	station "family-radio/companion/internal/station/service"
	"family-radio/companion/internal/telemetry"
	telemetryotel "family-radio/companion/internal/telemetry/otel"
	"family-radio/companion/internal/webpush"
)

// workerVersion is recorded in the registration; a start with a new version
// replaces the previous instance immediately.
const workerVersion = "1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := migrate.Ensure(cfg.DatabasePath()); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "companion-worker", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	// Install: record this instance as the active worker, replacing any prior version.
	if err := register(ctx, database, cfg.PublicPushURL); err != nil {
		log.Fatalf("worker: register: %v", err)
	}

	api := stationclient.New(cfg.ServerURL)
	identity := station.NewIdentity(cfg.ServerURL, api, stationrepo.NewSQLiteRepository(database))
	registry := clients.NewRegistry(database, cfg.ServerURL, cfg.OpenCommand)
	router := notify.NewRouter(display.New(""), registry, identity)

	// Activate: take over open page contexts without waiting for them to reload.
	if err := router.HandleActivate(ctx); err != nil {
		log.Printf("worker: claim page clients: %v", err)
	}

	subs := platform.NewLocalService(database)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// The push service delivers here: one route per subscription endpoint.
	e.POST("/:id", func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 8<<10))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}
		sub, err := subs.GetSubscription(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "subscription lookup failed")
		}
		if sub == nil || sub.ID != c.Param("id") {
			metrics.PushDelivery(c.Request().Context(), "unknown_subscription")
			return echo.NewHTTPError(http.StatusNotFound, "no such subscription")
		}

		if auth := c.Request().Header.Get("Authorization"); auth != "" {
			if err := webpush.VerifyAuthorization(auth, sub.ServerKey, pushAudience(cfg.PublicPushURL)); err != nil {
				log.Printf("worker: reject delivery: %v", err)
				metrics.PushDelivery(c.Request().Context(), "bad_vapid")
				return echo.NewHTTPError(http.StatusForbidden, "vapid verification failed")
			}
		}

		payload, outcome, err := decryptPayload(body, sub.UAPrivateKey, sub.Auth)
		if err != nil {
			log.Printf("worker: decrypt delivery: %v", err)
			metrics.PushDelivery(c.Request().Context(), outcome)
			return echo.NewHTTPError(http.StatusBadRequest, "undecryptable payload")
		}
		metrics.PushDelivery(c.Request().Context(), outcome)

		if err := router.HandlePush(c.Request().Context(), payload); err != nil {
			log.Printf("worker: show notification: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "notification failed")
		}
		metrics.NotificationShown(c.Request().Context())
		telemetry.EmitAsync(emitter, &telemetry.Event{
			Kind:      telemetry.KindPushDelivery,
			Origin:    cfg.ServerURL,
			Detail:    map[string]string{"outcome": outcome},
			CreatedAt: time.Now().UTC(),
		})
		return c.NoContent(http.StatusCreated)
	})

	// Click routing: the display surface (or a CLI) reports a notification click.
	e.POST("/internal/click", func(c echo.Context) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
		}
		if err := router.HandleClick(c.Request().Context(), req.URL); err != nil {
			log.Printf("worker: route click: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "click routing failed")
		}
		return c.NoContent(http.StatusNoContent)
	})

	go func() {
		log.Printf("worker: listening on %s (endpoints under %s)", cfg.PushListenAddr, cfg.PublicPushURL)
		if err := e.Start(cfg.PushListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("worker: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("worker: shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("worker: server shutdown: %v", err)
	}
	cancel()
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("worker: telemetry shutdown: %v", err)
	}
}

// register upserts the worker registration row, the analog of an installing
// worker that activates immediately.
func register(ctx context.Context, database *sqlx.DB, endpointBase string) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO worker_registration (id, version, endpoint_base, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET version = excluded.version,
			endpoint_base = excluded.endpoint_base, updated_at = excluded.updated_at`,
		workerVersion, endpointBase, time.Now().UTC())
	return err
}

// decryptPayload returns the cleartext of a delivery. Bodies without an
// aes128gcm header pass through untouched; an empty body is a valid delivery
// with no payload.
func decryptPayload(body, uaPrivateKey []byte, auth string) (payload []byte, outcome string, err error) {
	if len(body) == 0 {
		return nil, "empty", nil
	}
	priv, err := webpush.ParsePrivateKey(uaPrivateKey)
	if err != nil {
		return nil, "bad_keys", err
	}
	secret, err := webpush.DecodeAuthSecret(auth)
	if err != nil {
		return nil, "bad_keys", err
	}
	payload, err = webpush.Decrypt(body, priv, secret)
	if errors.Is(err, webpush.ErrNotEncrypted) {
		return body, "cleartext", nil
	}
	if err != nil {
		return nil, "decrypt_failed", err
	}
	return payload, "decrypted", nil
}

// pushAudience is the VAPID audience for this endpoint: the push origin.
func pushAudience(publicPushURL string) string {
	u, err := url.Parse(publicPushURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
