package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"github.com/sipeed/taskpin/pkg/bot"
	"github.com/sipeed/taskpin/pkg/config"
	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform/telegram"
	"github.com/sipeed/taskpin/pkg/store"
	"github.com/sipeed/taskpin/pkg/tracker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.ErrorCF("main", "Configuration error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.ErrorCF("main", "Store open failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer st.Close()

	tgBot, err := telego.NewBot(cfg.BotToken, telego.WithDiscardLogger())
	if err != nil {
		logger.ErrorCF("main", "Bot creation failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	client, err := telegram.New(ctx, tgBot)
	if err != nil {
		logger.ErrorCF("main", "Bot identity lookup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	engine := tracker.NewEngine(st, client, tracker.Options{
		RefreshDelay:     cfg.RefreshDelay,
		RetryMargin:      cfg.RetryMargin,
		MessageThrottle:  cfg.MessageThrottle,
		CallbackThrottle: cfg.CallbackThrottle,
		PreviewLength:    cfg.PreviewLength,
		ResetWindow:      cfg.ResetWindow,
	})
	defer engine.Stop()

	bot.RegisterCommands(ctx, tgBot)

	// Rebuild pins for chats whose summary went missing while we were
	// down; in-memory debounce state does not survive restarts.
	engine.InitPins(ctx)

	if cfg.DigestCron != "" {
		go func() {
			if err := engine.RunDigest(ctx, cfg.DigestCron); err != nil && ctx.Err() == nil {
				logger.ErrorCF("main", "Digest loop stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	updates, err := tgBot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		logger.ErrorCF("main", "Long polling failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	bh, err := th.NewBotHandler(tgBot, updates)
	if err != nil {
		logger.ErrorCF("main", "Handler setup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	bot.New(engine).Register(bh)

	go func() {
		<-ctx.Done()
		_ = bh.Stop()
	}()

	logger.InfoCF("main", "TaskPin started", map[string]interface{}{
		"db":  cfg.DBPath,
		"bot": client.BotID(),
	})
	if err := bh.Start(); err != nil {
		logger.ErrorCF("main", "Handler loop ended", map[string]interface{}{"error": err.Error()})
	}
	logger.InfoCF("main", "TaskPin stopped", nil)
}
