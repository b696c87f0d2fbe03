// Copyright 2025 Tomas Cupr
//
// MCP server for macOS desktop automation over stdio or HTTP/SSE

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tomascupr/mac-computer-use/internal/computer"
	"github.com/tomascupr/mac-computer-use/internal/config"
	"github.com/tomascupr/mac-computer-use/internal/server"
	"github.com/tomascupr/mac-computer-use/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	comp, err := newComputer(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dispatcher", zap.Error(err))
	}

	mcpServer, err := server.NewMCPServer(cfg, comp, log)
	if err != nil {
		log.Fatal("failed to create MCP server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	var serve func() error
	var closeTransport func() error
	switch cfg.Transport {
	case config.TransportHTTP:
		tr := transport.NewHTTPTransport(httpTransportConfig(cfg), log)
		serve = func() error { return mcpServer.ServeHTTP(tr) }
		closeTransport = tr.Close
	default:
		tr := transport.NewStdioTransport(os.Stdin, os.Stdout, log)
		serve = func() error { return mcpServer.Serve(tr) }
		closeTransport = tr.Close
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if serveErr := serve(); serveErr != nil {
			errChan <- serveErr
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("server error", zap.Error(err))
	}
	mcpServer.Shutdown()
	if err := closeTransport(); err != nil {
		log.Warn("failed to close transport", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("server shutdown complete")
	case <-sigChan:
		log.Warn("forced shutdown")
	}
}

// newLogger builds the process logger. With stdio transport stdout carries
// JSON-RPC, so logs always go to stderr.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

// newComputer wires the automation dispatcher, resolving the real display
// resolution from configuration or by probing the desktop.
func newComputer(cfg *config.Config, log *zap.Logger) (*computer.Computer, error) {
	runner := computer.NewExecRunner()

	real := computer.Resolution{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight}
	if cfg.ScalingEnabled && real.Width == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		probed, err := computer.ProbeResolution(ctx, runner)
		if err != nil {
			return nil, fmt.Errorf("failed to probe display resolution: %w", err)
		}
		real = probed
		log.Info("probed display resolution",
			zap.Int("width", real.Width),
			zap.Int("height", real.Height))
	}

	opts := computer.Options{
		Virtual:          computer.Resolution{Width: cfg.VirtualWidth, Height: cfg.VirtualHeight},
		Real:             real,
		ScalingEnabled:   cfg.ScalingEnabled,
		SettleDelay:      cfg.SettleDelay,
		OutputDir:        cfg.OutputDir,
		CliclickBin:      cfg.CliclickBin,
		ScreencaptureBin: cfg.ScreencaptureBin,
		SipsBin:          cfg.SipsBin,
	}
	return computer.New(opts, runner, log), nil
}

// httpTransportConfig maps the process configuration onto the HTTP
// transport settings.
func httpTransportConfig(cfg *config.Config) *transport.HTTPTransportConfig {
	return &transport.HTTPTransportConfig{
		Address:           cfg.HTTPAddress,
		SocketPath:        cfg.HTTPSocketPath,
		HeartbeatInterval: cfg.HeartbeatInterval,
		CORSOrigin:        cfg.CORSOrigin,
		APIKey:            cfg.APIKey,
		TLSCertFile:       cfg.TLSCertFile,
		TLSKeyFile:        cfg.TLSKeyFile,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		RateLimit:         cfg.RateLimit,
	}
}
