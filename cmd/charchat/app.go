package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/handlers"
	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/services/ai"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/ai-charchat-go/internal/services/audio"
	"github.com/ai-charchat-go/internal/services/cache"
	"github.com/ai-charchat-go/internal/services/session"
	"github.com/ai-charchat-go/internal/services/settings"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/ai-charchat-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds the client stack shared by the subcommands. load runs for every
// command; services wires the rest only for commands that talk to the
// backend or the local store.
type app struct {
	cfg  *config.Config
	log  *logrus.Logger
	out  io.Writer
	term *terminal

	metrics   *middleware.Metrics
	store     *storage.Manager
	scratch   *storage.Manager
	client    *api.Client
	chars     *cache.CharacterCache
	session   *session.Manager
	settings  *settings.Manager
	localizer *i18n.Localizer
	registry  *ai.Registry
	player    *audio.Player
}

func (a *app) load(cmd *cobra.Command, opts *options) error {
	envErr := godotenv.Load(opts.envFile)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envErr != nil {
		// A missing .env file is normal.
		log.WithError(envErr).Debug(".env file not loaded")
	}

	a.cfg = cfg
	a.log = log
	a.out = cmd.OutOrStdout()
	a.term = &terminal{out: a.out}
	return nil
}

func (a *app) services(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	a.metrics = middleware.NewMetrics()
	if a.cfg.Monitoring.Metrics.Enabled {
		go func() {
			a.log.WithFields(logrus.Fields{
				"port": a.cfg.Monitoring.Metrics.Port,
				"path": a.cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(a.cfg.Monitoring.Metrics.Port, a.cfg.Monitoring.Metrics.Path); err != nil {
				a.log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	store, err := storage.NewManager(a.cfg, a.log, storage.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store
	a.scratch = storage.NewSessionStore(a.log, storage.WithMetrics(a.metrics))

	limiter := middleware.NewRateLimiter(a.cfg, a.metrics, a.log)
	a.client = api.NewClient(a.cfg, limiter, a.metrics, a.log)
	a.chars = cache.NewCharacterCache(a.cfg, a.client, a.metrics, a.log)
	a.session = session.NewManager(store, a.scratch, a.log)
	a.settings = settings.NewManager(store, a.scratch, a.client, a.log)
	a.registry = ai.NewRegistry(&a.cfg.Models, store, a.log)

	a.localizer, err = i18n.NewLocalizer(&a.cfg.I18n)
	if err != nil {
		return fmt.Errorf("failed to initialize i18n: %w", err)
	}

	a.player = audio.NewPlayer(audio.NewNullDevice(), store, a.log)
	if err := a.player.Init(ctx); err != nil {
		a.log.WithError(err).Warn("Audio unavailable")
	}
	return nil
}

func (a *app) deps() handlers.Deps {
	return handlers.Deps{
		Config:     a.cfg,
		API:        a.client,
		Characters: a.chars,
		Session:    a.session,
		Settings:   a.settings,
		Localizer:  a.localizer,
		Notifier:   a.term,
		Navigator:  a.term,
		Metrics:    a.metrics,
		Logger:     a.log,
	}
}

func (a *app) responder() (ai.Responder, error) {
	return ai.NewResponder(a.cfg, a.client, a.registry, a.settings, a.metrics, a.log)
}

// reported tells whether the failure was already shown as a status message.
func (a *app) reported() bool {
	return a.term != nil && a.term.failed()
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close storage")
		}
	}
}

// terminal prints status messages and remembers the last navigation.
type terminal struct {
	mu     sync.Mutex
	out    io.Writer
	errors int
	page   string
	params map[string]string
}

var statusPrefix = map[handlers.StatusKind]string{
	handlers.KindSuccess: "✓",
	handlers.KindError:   "✗",
	handlers.KindInfo:    "ℹ",
	handlers.KindWarning: "!",
}

func (t *terminal) Status(msg handlers.StatusMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.Kind == handlers.KindError {
		t.errors++
	}
	fmt.Fprintf(t.out, "%s %s\n", statusPrefix[msg.Kind], msg.Text)
}

func (t *terminal) Navigate(page string, params map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.page, t.params = page, params
}

func (t *terminal) failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errors > 0
}

func (t *terminal) location() (string, map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page, t.params
}
