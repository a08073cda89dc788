// Command gaspoold runs a sponsored gas pool service: it generates a
// sponsor signing key set, opens a coin store, connects to a fullnode,
// and constructs an in-process GasPool while the Expiration Sweeper
// reclaims coins from lapsed reservations in the background. No
// HTTP/gRPC front-end for reserve/execute is built, so the binary
// accepts no reservation or execution requests; it is the wiring layer
// plus a metrics endpoint for operators.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
	"github.com/gaspool-io/gaspool/chainclient"
	"github.com/gaspool-io/gaspool/gaspool"
	"github.com/gaspool-io/gaspool/signer"
	"github.com/gaspool-io/gaspool/store"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "path to the gaspoold TOML config file",
		Required: true,
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "address to serve Prometheus metrics on",
		Value: "127.0.0.1:6060",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0=crit ... 5=trace)",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:   "gaspoold",
		Usage:  "sponsored gas pool service",
		Flags:  []cli.Flag{configFlag, metricsAddrFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gaspoold:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	setupLogging(cfg, log.FromLegacyLevel(c.Int(verbosityFlag.Name)))

	sg, err := signer.NewDevSigner(cfg.Signer.SponsorCount)
	if err != nil {
		return fmt.Errorf("gaspoold: provision signer: %w", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	chain, err := chainclient.DialContext(ctx, cfg.Fullnode.Endpoint)
	if err != nil {
		return fmt.Errorf("gaspoold: connect to fullnode: %w", err)
	}

	container := gaspool.NewContainer(sg, st, chain, cfg.GasCap.DailyLimit)
	container.Start()
	defer container.Stop()

	stopMetrics := serveMetrics(c.String(metricsAddrFlag.Name))
	defer stopMetrics()

	log.Info("gaspoold running", "sponsors", len(sg.Addresses()), "fullnode", cfg.Fullnode.Endpoint)
	waitForSignal()
	log.Info("gaspoold shutting down")
	return nil
}

func openStore(cfg *Config) (store.Store, func(), error) {
	if cfg.Store.DataDir == "" {
		return store.NewMemStore(), func() {}, nil
	}
	ps, err := store.OpenPebbleStore(cfg.Store.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("gaspoold: open durable store: %w", err)
	}
	return ps, func() {
		if err := ps.Close(); err != nil {
			log.Error("failed to close durable store", "err", err)
		}
	}, nil
}

func setupLogging(cfg *Config, level slog.Level) {
	var handler slog.Handler
	if cfg.Log.File != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		handler = log.NewTerminalHandlerWithLevel(writer, level, false)
	} else {
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, true)
	}
	log.SetDefault(log.NewLogger(handler))
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.Handler(gethmetrics.DefaultRegistry))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped unexpectedly", "err", err)
		}
	}()
	return func() {
		_ = srv.Shutdown(context.Background())
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
