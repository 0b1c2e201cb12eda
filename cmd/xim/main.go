// Command xim is a terminal instant messenger on top of the xim dispatch core.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/samber/lo"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
	"github.com/trickstertwo/xlog/adapter/zerolog"

	"github.com/trickstertwo/xim"
	"github.com/trickstertwo/xim/adapter/memory"
	"github.com/trickstertwo/xim/adapter/redisstream"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.NoColor {
		color.Enable = false
	}

	logger := zerolog.Use(zerolog.Config{
		MinLevel:          lo.Ternary(cfg.Debug, xlog.LevelDebug, xlog.LevelInfo),
		Console:           true,
		ConsoleTimeFormat: time.Kitchen,
		Caller:            cfg.Debug,
		CallerSkip:        5,
		Writer:            os.Stderr,
	}).With(xlog.Str("app", "xim"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	con := newConsoleSink(os.Stdout)
	m, err := buildMessenger(cfg, con, logger)
	if err != nil {
		logger.Error().Err(err).Str("channel", cfg.Channel).Msg("failed to start messenger")
		os.Exit(1)
	}
	defer func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		if err := m.Close(cctx); err != nil {
			logger.Warn().Err(err).Msg("messenger close")
		}
	}()

	if cfg.HealthAddr != "" {
		go serveHealth(ctx, cfg.HealthAddr, m, logger)
	}

	if cfg.Username != "" {
		if err := m.SetUsername(cfg.Username); err != nil {
			con.println(styleFail, "! %v", err)
		}
	}
	if _, ok := m.CurrentUsername(); !ok {
		con.println(styleInfo, "* what is your name? use /name <name>, /help lists commands")
	}

	sh := newShell(m, con)
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx, os.Stdin) }()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("input closed")
		}
	}
}

func buildMessenger(cfg Config, sink xim.Sink, logger *xlog.Logger) (*xim.Messenger, error) {
	b := xim.NewMessengerBuilder().
		WithSink(sink).
		WithLogger(logger).
		WithClock(xclock.Default()).
		WithSendTimeout(cfg.SendTimeout).
		WithRejectEmptyContent(cfg.RejectEmpty).
		WithMiddleware(xim.LoggingMiddleware())

	switch cfg.Channel {
	case redisstream.ChannelName:
		rc := redisstream.Defaults()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		ch, err := redisstream.NewTransport(rc)
		if err != nil {
			return nil, fmt.Errorf("redis channel: %w", err)
		}
		b.WithChannelInstance(ch)
	default:
		// Loopback: the only reachable inbox is your own name.
		b.WithChannelInstance(memory.NewTransport(memory.Config{Hub: memory.NewHub(), DeliveryTimeout: 5 * time.Second}))
	}

	return b.Build()
}
