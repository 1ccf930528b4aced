package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/talkx/talkx-client/internal/api"
	"github.com/talkx/talkx-client/internal/chat"
	"github.com/talkx/talkx-client/internal/config"
	"github.com/talkx/talkx-client/internal/logging"
	"github.com/talkx/talkx-client/internal/protocol"
	"github.com/talkx/talkx-client/internal/push"
	"github.com/talkx/talkx-client/internal/state"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Info("talkx-client starting",
		slog.String("version", Version),
		slog.String("server", cfg.ServerURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appState, err := loadState(cfg)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	deviceID, err := appState.DeviceID()
	if err != nil {
		return err
	}

	apiClient := api.NewClient(cfg.APIBaseURL, nil)

	if err := authenticate(ctx, apiClient, cfg, appState, deviceID, logger); err != nil {
		return err
	}

	platform := cfg.PushPlatform
	if platform == "" {
		platform = "desktop"
	}

	client, err := chat.NewClient(chat.Config{
		URL:      cfg.ServerURL,
		DeviceID: deviceID,
		Platform: platform,
		Store:    appState,
		Events:   loggingEvents(logger),
	}, logger)
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.Run(gctx)
	})

	if cfg.PushPlatform != "" && cfg.PushToken != "" {
		registrar := push.NewRegistrar(apiClient, appState, deviceID, cfg.PushPlatform, logger)

		g.Go(func() error {
			if err := registrar.Register(gctx, cfg.PushToken, false); err != nil {
				// Deferred retries continue in the background;
				// registration failure never takes the client down.
				logger.Warn("push registration deferred", slog.String("error", err.Error()))
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return client.Close()
	})

	return g.Wait()
}

func loadState(cfg *config.Config) (*state.State, error) {
	if cfg.StatePath != "" {
		return state.LoadAt(cfg.StatePath)
	}

	return state.Load()
}

// authenticate ensures a session token is cached. A cached token is
// used as-is; the socket handshake is what validates it, and a server
// rejection there clears it for the next run. Without credentials the
// client connects anonymously on its device id alone.
func authenticate(ctx context.Context, client *api.Client, cfg *config.Config, appState *state.State, deviceID string, logger *slog.Logger) error {
	if cfg.Username == "" {
		logger.Info("no credentials configured, connecting anonymously")
		return nil
	}

	if token := appState.Token(); token != "" {
		logger.Debug("using cached session token")
		return nil
	}

	logger.Info("logging in", slog.String("username", cfg.Username))

	resp, err := client.Login(ctx, cfg.Username, cfg.Password, deviceID)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	logger.Info("logged in",
		slog.String("username", resp.Username),
		slog.String("user_id", resp.UserID),
	)

	if err := appState.SetToken(resp.Token); err != nil {
		logger.Warn("failed to save token", slog.String("error", err.Error()))
	}

	return nil
}

// loggingEvents surfaces chat activity through the structured log. A UI
// embedding this package supplies its own callbacks instead.
func loggingEvents(logger *slog.Logger) chat.Events {
	return chat.Events{
		OnConnectionState: func(s chat.ConnState) {
			logger.Info("connection", slog.String("state", s.String()))
		},
		OnOnlineCount: func(count int) {
			logger.Debug("online count", slog.Int("count", count))
		},
		OnQueued: func() {
			logger.Info("queued for match")
		},
		OnMatched: func(m protocol.Matched) {
			logger.Info("matched",
				slog.String("room_id", m.RoomID),
				slog.String("peer", m.PeerNickname),
			)
		},
		OnRoomMessage: func(text string) {
			logger.Info("room message", slog.String("text", text))
		},
		OnDirectMessage: func(m protocol.InboundDirectMessage) {
			logger.Info("direct message",
				slog.String("from", m.FromUserID),
				slog.String("text", m.Text),
			)
		},
		OnSendResult: func(clientMsgID string, delivered bool) {
			logger.Info("send resolved",
				slog.String("client_msg_id", clientMsgID),
				slog.Bool("delivered", delivered),
			)
		},
		OnEnded: func(reason string) {
			logger.Info("conversation ended", slog.String("reason", reason))
		},
		OnAdminNotice: func(m protocol.AdminNotice) {
			logger.Info("admin notice",
				slog.String("title", m.Title),
				slog.String("body", m.Body),
			)
		},
		OnSessionError: func(code, message string) {
			logger.Error("session error",
				slog.String("code", code),
				slog.String("message", message),
			)
		},
	}
}
