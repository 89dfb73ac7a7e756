package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
	"github.com/scoreunlock/scoreunlock/internal/handler"
	appI18n "github.com/scoreunlock/scoreunlock/internal/i18n"
	"github.com/scoreunlock/scoreunlock/internal/model"
	"github.com/scoreunlock/scoreunlock/internal/sharelink"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scoreunlock",
		Short:        "Crowdmark score statistics, change alerts and share links",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("base-url", crowdmark.DefaultBaseURL, "Crowdmark base URL")
	pf.String("session-cookie", "", "Cookie header of a logged-in Crowdmark session (or set SCOREUNLOCK_SESSION_COOKIE)")
	pf.StringP("lang", "l", "en", "UI language (en, fr)")
	pf.Int("max-pages", crowdmark.DefaultMaxPages, "Maximum course listing pages to walk")
	pf.Duration("http-timeout", 30*time.Second, "Timeout for each API request (0 = none)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	serve := serveCmd()
	root.AddCommand(serve, summaryCmd(), compareCmd(), watchCmd(), linkCmd(), injectCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `scoreunlock --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local share link service",
		RunE:  runServe,
	}
	cmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SCOREUNLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("scoreunlock")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/scoreunlock")
	v.AddConfigPath("/etc/scoreunlock")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// loadConfig resolves and validates the settings shared by every command.
// Keys a command does not define resolve to their zero value.
func loadConfig(cmd *cobra.Command) (model.Config, *viper.Viper, error) {
	v := viperForCmd(cmd)
	cfg := model.Config{
		BaseURL:       strings.TrimRight(v.GetString("base-url"), "/"),
		SessionCookie: v.GetString("session-cookie"),
		Lang:          strings.ToLower(v.GetString("lang")),
		MaxPages:      v.GetInt("max-pages"),
		HTTPTimeout:   v.GetDuration("http-timeout"),
		Interval:      v.GetDuration("interval"),
		InjectPeriod:  v.GetDuration("period"),
		Notifier:      model.NotifierKind(strings.ToLower(v.GetString("notifier"))),
		Addr:          v.GetString("addr"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return model.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := appI18n.Init(cfg.Lang); err != nil {
		return model.Config{}, nil, fmt.Errorf("init i18n: %w", err)
	}
	return cfg, v, nil
}

func newClient(cfg model.Config) *crowdmark.Client {
	return crowdmark.New(cfg.BaseURL, cfg.SessionCookie,
		crowdmark.WithTimeout(cfg.HTTPTimeout),
		crowdmark.WithMaxPages(cfg.MaxPages),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	client := newClient(cfg)
	cache := sharelink.NewCache(client)
	if err := cache.Rebuild(ctx); err != nil {
		// The service still starts; POST /rebuild retries.
		slog.Warn("initial share link cache build failed", "error", err)
	}

	h := handler.New(client, cache)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.Addr,
			"base_url", cfg.BaseURL,
			"lang", cfg.Lang,
			"exams", cache.Len(),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
