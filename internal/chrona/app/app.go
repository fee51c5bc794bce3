// Package app wires the Chrona application together: storage, the command
// pipeline, the HTTP surface, and the background loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chrona-app/chrona/common/redact"
	"github.com/chrona-app/chrona/internal/chrona/agent"
	"github.com/chrona-app/chrona/internal/chrona/calendar"
	"github.com/chrona-app/chrona/internal/chrona/httpapi"
	"github.com/chrona-app/chrona/internal/chrona/llm"
	"github.com/chrona-app/chrona/internal/chrona/nlp"
	"github.com/chrona-app/chrona/internal/chrona/notify"
	"github.com/chrona-app/chrona/internal/chrona/providers"
	"github.com/chrona-app/chrona/internal/chrona/providers/caldav"
	"github.com/chrona-app/chrona/internal/chrona/providers/google"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// App is the assembled application.
type App struct {
	config     *Config
	log        *slog.Logger
	store      *store.Store
	calendar   *calendar.Service
	dispatcher *agent.Dispatcher
	server     *httpapi.Server
	syncer     *providers.Syncer

	// bootstrapUserID scopes sync passes; zero when no bootstrap user is
	// configured.
	bootstrapUserID int64
}

// New assembles the application from cfg. Optional subsystems (language
// model, providers, email) are attached only when configured; their absence
// degrades behavior, never startup.
func New(cfg *Config) (*App, error) {
	log := setupLogging(cfg.LogLevel, cfg.LogFormat)

	log.Info("configuration loaded", slog.Any("config", redact.Map(map[string]any{
		"database":        cfg.DatabasePath,
		"http_addr":       cfg.HTTPAddr,
		"jwt_secret":      cfg.JWTSecret,
		"llm_endpoint":    cfg.LLMEndpoint,
		"llm_model":       cfg.LLMModel,
		"llm_api_key":     cfg.LLMAPIKey,
		"email_enabled":   cfg.EmailEnabled,
		"google_sync":     cfg.GoogleEnabled,
		"caldav_sync":     cfg.CaldavEnabled,
		"caldav_password": cfg.CaldavPassword,
	})))

	log.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: initialize database: %w", err)
	}

	notifier := notify.New(cfg.EmailEnabled, cfg.EmailFrom, log)
	service := calendar.New(st, notifier, log)

	// Language-model layer. Without it the rule-based path handles
	// everything and complex queries are declined.
	var provider llm.Provider
	if cfg.llmConfigured() {
		provider = llm.NewOpenAI(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMEndpoint,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		log.Info("language model ready",
			"endpoint", orDefault(cfg.LLMEndpoint, "https://api.openai.com/v1"),
			"model", orDefault(cfg.LLMModel, "gpt-4o-mini"))
	} else {
		log.Info("no language model configured; running rule-based only")
	}

	rules := nlp.NewParser(nlp.NewHeuristicTagger())
	parser := llm.NewExtractionParser(provider, rules, cfg.LLMModel, log)
	classifier := agent.NewLLMClassifier(provider, agent.NewRuleClassifier(), cfg.LLMModel, log)

	dispatcher := agent.NewDispatcher(agent.DispatcherConfig{
		Classifier: classifier,
		Parser:     parser,
		Calendar:   service,
		Provider:   provider,
		Model:      cfg.LLMModel,
		Log:        log,
	})

	server := httpapi.New(httpapi.Config{
		Addr:      cfg.HTTPAddr,
		JWTSecret: cfg.JWTSecret,
	}, dispatcher, st, log)

	a := &App{
		config:     cfg,
		log:        log,
		store:      st,
		calendar:   service,
		dispatcher: dispatcher,
		server:     server,
	}

	if err := a.ensureBootstrapUser(context.Background()); err != nil {
		st.Close()
		return nil, err
	}

	a.syncer = a.buildSyncer(context.Background())

	return a, nil
}

// buildSyncer constructs the provider syncer from the configured backends.
// A backend that fails to initialize is logged and skipped so one bad
// credential does not take the whole app down.
func (a *App) buildSyncer(ctx context.Context) *providers.Syncer {
	cfg := a.config

	var provs []providers.Provider
	if cfg.GoogleEnabled {
		client, err := google.NewClient(ctx, google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			TokenFile:    cfg.GoogleTokenFile,
			CalendarID:   cfg.GoogleCalendarID,
		}, a.log)
		if err != nil {
			a.log.Warn("google calendar unavailable", "error", err)
		} else {
			provs = append(provs, client)
		}
	}
	if cfg.CaldavEnabled {
		client, err := caldav.NewClient(ctx, caldav.Config{
			Endpoint:     cfg.CaldavEndpoint,
			Username:     cfg.CaldavUsername,
			Password:     cfg.CaldavPassword,
			CalendarName: cfg.CaldavCalendar,
		}, a.log)
		if err != nil {
			a.log.Warn("caldav calendar unavailable", "error", err)
		} else {
			provs = append(provs, client)
		}
	}

	if len(provs) == 0 {
		return nil
	}
	if a.bootstrapUserID == 0 {
		a.log.Warn("calendar sync configured without a bootstrap user; sync disabled")
		return nil
	}
	return providers.NewSyncer(a.store, provs, a.log)
}

// ensureBootstrapUser creates the configured startup account if it does
// not exist yet.
func (a *App) ensureBootstrapUser(ctx context.Context) error {
	cfg := a.config
	if cfg.BootstrapUsername == "" {
		return nil
	}

	user, err := a.store.GetUserByUsername(ctx, cfg.BootstrapUsername)
	switch {
	case err == nil:
		a.bootstrapUserID = user.ID
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("app: look up bootstrap user: %w", err)
	}

	if cfg.BootstrapPassword == "" {
		return fmt.Errorf("app: CHRONA_BOOTSTRAP_PASSWORD is required to create user %q", cfg.BootstrapUsername)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("app: hash bootstrap password: %w", err)
	}

	user = &store.User{
		Username:       cfg.BootstrapUsername,
		Email:          orDefault(cfg.BootstrapEmail, cfg.BootstrapUsername+"@localhost"),
		HashedPassword: string(hash),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("app: create bootstrap user: %w", err)
	}
	a.bootstrapUserID = user.ID
	a.log.Info("created bootstrap user", "username", user.Username, "user_id", user.ID)
	return nil
}

// BootstrapToken issues a bearer token for the bootstrap user, for handing
// to the operator at first start.
func (a *App) BootstrapToken() (string, error) {
	if a.bootstrapUserID == 0 {
		return "", fmt.Errorf("app: no bootstrap user configured")
	}
	return httpapi.GenerateToken(a.bootstrapUserID, a.config.JWTSecret, 0)
}

// Run starts the HTTP server and the background loops, then blocks until
// an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("app: start http server: %w", err)
	}

	go a.reminderLoop(ctx)
	if a.syncer != nil {
		go a.syncLoop(ctx)
	}

	a.log.Info("chrona is running; press Ctrl+C to stop", "addr", a.config.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutting down")
	return nil
}

// reminderLoop sweeps for due event and task reminders.
func (a *App) reminderLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.ReminderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := a.calendar.ProcessDueReminders(ctx, time.Now())
			if err != nil {
				a.log.Error("reminder sweep failed", "error", err)
				continue
			}
			if sent > 0 {
				a.log.Info("reminder sweep finished", "sent", sent)
			}
		}
	}
}

// syncLoop pulls external calendars on a fixed cadence, starting with an
// immediate pass.
func (a *App) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.SyncInterval)
	defer ticker.Stop()

	a.syncer.SyncAll(ctx, a.bootstrapUserID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncer.SyncAll(ctx, a.bootstrapUserID)
		}
	}
}

// Stop shuts the application down.
func (a *App) Stop() {
	a.log.Info("stopping http server")
	a.server.Stop()

	a.log.Info("closing database")
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing database failed", "error", err)
	}
}

// setupLogging installs the process-wide slog handler.
func setupLogging(level, format string) *slog.Logger {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
