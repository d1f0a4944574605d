package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"mock-link/config"
	"mock-link/lib/logging"
	"mock-link/lib/metrics"
	"mock-link/link"
	"mock-link/node"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		workers    uint
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated node",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the node config file")
	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address")
	cmd.Flags().UintVar(&workers, "workers", 0, "override the number of receive workers")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, errOut)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	if cfg.Metrics.Address != "" {
		srv := serveMetrics(cfg.Metrics.Address, reg, logger)
		defer srv.Close()
	}

	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	n, err := node.New(cfg, logger, clock.New(), m, func(peer string, pkt link.Packet) {
		printf("%s: %s\n", peer, pkt)
	})
	if err != nil {
		return err
	}
	defer n.Close()

	printf("listening on %s, peers: %s\n", n.LocalAddr(), strings.Join(n.Peers(), ", "))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := execute(n, line, printf); err != nil && !errors.Is(err, errEmptyLine) {
				printf("error: %v\n", err)
			}
		}
	}
}

func execute(n *node.Node, line string, printf func(string, ...any)) error {
	cmd, err := parseCommand(line)
	if err != nil {
		return err
	}

	switch cmd.kind {
	case commandSend:
		return n.Send(cmd.peer, link.Packet(cmd.message))
	case commandEnable:
		return n.Enable(cmd.peer)
	case commandDisable:
		return n.Disable(cmd.peer)
	case commandPeers:
		for _, peer := range n.Peers() {
			enabled, err := n.Enabled(peer)
			if err != nil {
				return err
			}
			printf("%s enabled=%t\n", peer, enabled)
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.KeyError, err.Error())
		}
	}()

	return srv
}
