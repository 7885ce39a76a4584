package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/app"
	"github.com/prince4597/society-management-software-sub001/internal/client"
	"github.com/prince4597/society-management-software-sub001/internal/config"
	"github.com/prince4597/society-management-software-sub001/internal/errbus"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/notify"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/route"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

func main() {
	configPath := flag.StringP("config", "c", "console.yaml", "Path to the config file")
	httpURL := flag.String("http-url", "", "Backend HTTP base URL (overrides config)")
	wsURL := flag.String("ws-url", "", "Backend websocket URL (derived from --http-url when empty)")
	token := flag.String("token", "", "Bearer token to resume a session with")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "Log file (the terminal is the UI)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *httpURL != "" {
		cfg.Server.HTTPURL = *httpURL
		if *wsURL == "" {
			cfg.Server.WSURL = deriveWSURL(*httpURL)
		}
	}
	if *wsURL != "" {
		cfg.Server.WSURL = *wsURL
	}
	if *token != "" {
		cfg.Server.Token = *token
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("console exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	bus := errbus.New()
	surface := notify.New(notify.Options{
		DefaultDuration: cfg.Notifications.DefaultDuration,
		MaxVisible:      cfg.Notifications.MaxVisible,
		Logger:          log,
	})
	detach := notify.Bridge(bus, surface, errbus.Suppressor{
		Code:       cfg.Notifications.SuppressCode,
		Substrings: cfg.Notifications.SuppressSubstrings,
	})
	defer detach()

	table := route.DefaultTable(cfg.Routes)
	router := route.NewRouter(table, table.Entry)

	httpClient := client.NewHTTPClient(cfg.Server.HTTPURL, cfg.Server.Token, cfg.Session.RequestTimeout, bus, log)
	store := session.NewStore(session.Options{
		Provider:       httpClient,
		Navigator:      router,
		Routes:         table,
		ResolveTimeout: cfg.Session.ResolveTimeout,
		Logger:         log,
	})

	dialer := &realtime.WSDialer{
		URL:              cfg.Server.WSURL,
		Token:            httpClient.Token,
		HandshakeTimeout: cfg.Realtime.ConnectTimeout,
		PongTimeout:      cfg.Realtime.PongTimeout,
	}
	mgr := realtime.NewManager(store, dialer, realtime.Policy{
		MaxAttempts:    cfg.Realtime.MaxAttempts,
		ConnectTimeout: cfg.Realtime.ConnectTimeout,
		BaseDelay:      cfg.Realtime.BaseDelay,
		MaxDelay:       cfg.Realtime.MaxDelay,
		PingInterval:   cfg.Realtime.PingInterval,
	}, log)
	defer mgr.Close()

	log.Info("console starting",
		zap.String("http_url", cfg.Server.HTTPURL),
		zap.String("ws_url", cfg.Server.WSURL))

	m := app.New(app.Deps{
		Store:   store,
		Router:  router,
		Manager: mgr,
		Surface: surface,
		Bus:     bus,
		Logger:  log,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// deriveWSURL converts http://host:port → ws://host:port/ws
func deriveWSURL(httpURL string) string {
	u, err := url.Parse(httpURL)
	if err != nil || u.Host == "" {
		return "ws://127.0.0.1:8080/ws"
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host)
}
