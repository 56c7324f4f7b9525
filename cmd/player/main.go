// Player hosts one page context of the radio site: the nav bar, the mini player
// or full player, and the control endpoint the background worker messages
// through. Set SERVER_URL; PAGE selects the hash route (e.g. "#library").
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"family-radio/companion/internal/config"
	"family-radio/companion/internal/db"
	"family-radio/companion/internal/db/migrate"
	"family-radio/companion/internal/notify"
	"family-radio/companion/internal/notify/clients"
	playbackdomain "family-radio/companion/internal/playback/domain"
	"family-radio/companion/internal/playback/pipeline"
	playbackrepo "family-radio/companion/internal/playback/repository"
	playback "family-radio/companion/internal/playback/service"
	stationclient "family-radio/companion/internal/station/client"
	stationdomain "family-radio/companion/internal/station/domain"
	stationrepo "family-radio/companion/internal/station/repository"
	station "family-radio/companion/internal/station/service"
	"family-radio/companion/internal/telemetry"
	telemetryotel "family-radio/companion/internal/telemetry/otel"
)

// terminalView renders the player chrome as terminal lines.
type terminalView struct{}

func (terminalView) ShowLoading(on bool) {
	if on {
		fmt.Println("[ ... buffering ... ]")
	}
}

func (terminalView) SetPlaying(on bool) {
	if on {
		fmt.Println("[ playing | press enter to pause ]")
	} else {
		fmt.Println("[ paused  | press enter to play  ]")
	}
}

func (terminalView) SetNowPlaying(text string) {
	fmt.Printf("now playing: %s\n", text)
}

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

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "companion-player", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	api := stationclient.New(cfg.ServerURL)
	identity := station.NewIdentity(cfg.ServerURL, api, stationrepo.NewSQLiteRepository(database))

	// Cached name first, refreshed in place once the fetch lands.
	name := identity.CachedName(ctx)
	page := cfg.Page
	renderChrome(name, page)
	go func() {
		st, changed, err := identity.Refresh(ctx, name)
		if err != nil {
			log.Printf("player: status refresh: %v", err)
			return
		}
		if changed {
			renderChrome(st.StationName, page)
		}
	}()

	sessions, err := playbackrepo.NewFileRepository(cfg.RuntimeDir, cfg.SessionID)
	if err != nil {
		log.Fatalf("player: %v", err)
	}

	streamURL := cfg.ResolveStreamURL(identity.CachedStreamURL(ctx))
	controller := playback.New(pipeline.NewStream(), sessions, api, terminalView{}, streamURL, cfg.PollInterval())
	controller.SetTransitionHook(func(from, to playbackdomain.State) {
		metrics.PlaybackTransition(ctx, from.String(), to.String())
		telemetry.EmitAsync(emitter, &telemetry.Event{
			Kind:      telemetry.KindPlaybackTransition,
			SessionID: cfg.SessionID,
			Origin:    cfg.ServerURL,
			Detail:    map[string]string{"from": from.String(), "to": to.String()},
			CreatedAt: time.Now().UTC(),
		})
	})
	controller.Load(ctx)

	// The full player page always carries the audio surface; other pages only
	// attach the mini player when a session says the stream should be audible.
	attached := isPlayingPage(page)
	if !attached {
		sess := controller.Session()
		attached = playbackdomain.ShouldAttach(page, &sess)
	}
	if attached {
		if !pipeline.AudioAvailable {
			log.Print("player: audio not available in this build")
		}
		controller.AutoResume(ctx)
		go controller.Run(ctx)
	}

	// Control endpoint: the worker routes notification clicks here.
	registry := clients.NewRegistry(database, cfg.ServerURL, cfg.OpenCommand)
	clientID := uuid.NewString()
	controlURL, stopControl, err := startControl(ctx, clientID, registry, name)
	if err != nil {
		log.Fatalf("player: control endpoint: %v", err)
	}
	if err := registry.Register(ctx, notify.Client{ID: clientID, ControlURL: controlURL, Page: page}); err != nil {
		log.Printf("player: register page client: %v", err)
	}

	if attached {
		go readClicks(ctx, controller)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("player: shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := registry.Deregister(shutdownCtx, clientID); err != nil {
		log.Printf("player: deregister page client: %v", err)
	}
	stopControl(shutdownCtx)
	cancel()
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("player: telemetry shutdown: %v", err)
	}
}

func isPlayingPage(page string) bool {
	return page == "" || page == "#playing"
}

// renderChrome prints the station header and nav links, marking the active one.
func renderChrome(name, page string) {
	if name == "" {
		name = stationdomain.DefaultName
	}
	fmt.Printf("== %s ==\n", stationdomain.PageTitle(name, ""))
	for _, l := range stationdomain.Links() {
		marker := "  "
		if l.IsActive(page) {
			marker = "> "
		}
		fmt.Printf("%s%s %s (%s)\n", marker, l.Icon, l.Label, l.Href)
	}
}

// startControl serves the page client's control endpoint on an ephemeral
// loopback port and returns its base URL.
func startControl(ctx context.Context, clientID string, registry *clients.Registry, stationName string) (string, func(context.Context), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/client/message", func(c echo.Context) error {
		var msg notify.NavigateMessage
		if err := c.Bind(&msg); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed message")
		}
		switch msg.Type {
		case "navigate":
			fmt.Printf("\n-- navigating to %s --\n", msg.URL)
			renderChrome(stationName, hashOf(msg.URL))
			if err := registry.Register(c.Request().Context(), notify.Client{
				ID: clientID, ControlURL: "http://" + ln.Addr().String(), Page: hashOf(msg.URL),
			}); err != nil {
				log.Printf("player: update page client: %v", err)
			}
		case "claim":
			log.Print("player: a new worker instance took control")
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/client/focus", func(c echo.Context) error {
		// Terminal bell stands in for bringing the window to front.
		fmt.Print("\a")
		return c.NoContent(http.StatusNoContent)
	})

	e.Listener = ln
	go func() {
		if err := e.Start(""); err != nil && err != http.ErrServerClosed {
			log.Printf("player: control endpoint: %v", err)
		}
	}()

	stop := func(shutdownCtx context.Context) {
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("player: control shutdown: %v", err)
		}
	}
	return "http://" + ln.Addr().String(), stop, nil
}

// hashOf extracts the hash route from a site-relative URL like "/#library".
func hashOf(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == '#' {
			return url[i:]
		}
	}
	return ""
}

// readClicks maps enter presses on stdin to play/pause toggles.
func readClicks(ctx context.Context, controller *playback.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		controller.Click(ctx)
	}
}
