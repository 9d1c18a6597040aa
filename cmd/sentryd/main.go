// Command sentryd is the intrusion-response daemon described by the
// project's specification: tail configured log files, detect attack
// signatures, and jail/unjail offending IPs via external commands.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arn-sec/sentryd/internal/cli"
	"github.com/arn-sec/sentryd/internal/config"
	"github.com/arn-sec/sentryd/internal/executor"
	"github.com/arn-sec/sentryd/internal/logging"
	"github.com/arn-sec/sentryd/internal/metrics"
	"github.com/arn-sec/sentryd/internal/registry"
	"github.com/arn-sec/sentryd/internal/tailer"
)

// metricsListenAddr is where /metrics is served; empty disables it.
const metricsListenAddr = ":9090"

func main() {
	root := cli.NewRootCommand(run)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts cli.Options) error {
	configPath, err := config.Resolve(opts.ConfigPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logfile, err := logging.Init(cfg.LogfilePath)
	if err != nil {
		return err
	}
	if logfile != nil {
		defer logfile.Close()
	}

	logrus.Info("Initialized successfully.")
	if opts.ReadFromStart {
		logrus.Info("Reading files from start.")
	}
	if opts.Simulate {
		logrus.Info("Simulation mode activated.")
	}

	m := metrics.New()
	if metricsListenAddr != "" {
		go serveMetrics(m)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exec := executor.New(opts.Simulate, executor.WithRateLimit(50, 10))
	reg := registry.New(exec, cfg.CommandJail, cfg.CommandUnjail, cfg.BaseJailTime, registry.WithMetrics(m))

	hits := make(chan registry.Hit, 256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.Run(ctx, hits)
	}()

	for _, obs := range cfg.Observers {
		logrus.Infof("Starting observer %s.", obs.Name)

		tl, err := tailer.New(tailer.Config{
			Name:               obs.Name,
			FilePath:           obs.FilePath,
			Patterns:           obs.Patterns,
			LimitCount:         obs.LimitCount,
			LimitWindowMinutes: obs.LimitWindowMinutes,
			ReadFromStart:      opts.ReadFromStart,
		}, tailer.WithMetrics(m))
		if err != nil {
			logrus.WithError(err).Errorf("observer %s failed to start", obs.Name)
			return err
		}

		wg.Add(1)
		go func(tl *tailer.Tailer) {
			defer wg.Done()
			tl.Run(ctx, hits)
		}(tl)
	}

	<-ctx.Done()
	logrus.Info("shutting down.")
	wg.Wait()
	return nil
}

func serveMetrics(m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: metricsListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Warn("metrics server exited")
	}
}
