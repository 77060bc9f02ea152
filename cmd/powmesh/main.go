package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tolelom/powmesh/chain"
	"github.com/tolelom/powmesh/internal/metrics"
	"github.com/tolelom/powmesh/internal/simnet"
	"github.com/tolelom/powmesh/node"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if err := newRootCmd(log).Execute(); err != nil {
		log.Fatal().Err(err).Msg("powmesh exited with error")
	}
}

func newRootCmd(log zerolog.Logger) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "powmesh",
		Short: "Run an in-process mesh of simulated proof-of-work nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), log, cfg)
		},
	}

	flags := cmd.Flags()
	flags.Int("node-count", DefaultConfig().NodeCount, "number of nodes in the mesh")
	flags.Int("mining-nodes", DefaultConfig().MiningNodes, "how many of those nodes mine (first N)")
	flags.Duration("mining-delay", DefaultConfig().MiningDelay, "delay between mining attempts; 0 disables mining")
	flags.Duration("run-for", DefaultConfig().RunFor, "how long to run the mesh before shutting down")
	flags.String("metrics-addr", DefaultConfig().MetricsAddr, "address to serve /metrics on")
	flags.String("config", "", "optional config file (YAML/JSON/TOML)")

	for _, name := range []string{"node_count", "mining_nodes", "mining_delay", "run_for", "metrics_addr"} {
		flagName := toFlagName(name)
		_ = v.BindPFlag(name, flags.Lookup(flagName))
	}
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}
		return nil
	}
	cmd.AddCommand(newGenesisCmd())
	return cmd
}

// newGenesisCmd prints a genesis chain's head hash at a given difficulty
// level, letting an operator sanity-check that two builds agree on the
// hash input layout without standing up a mesh.
func newGenesisCmd() *cobra.Command {
	var increases int
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Print the genesis block's hash at a given difficulty",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := chain.MinDifficulty()
			for i := 0; i < increases; i++ {
				d = d.Increase()
			}
			g := chain.Genesis(d)
			h := g.Head().Hash
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(h[:]))
			return nil
		},
	}
	cmd.Flags().IntVar(&increases, "difficulty-increases", 0, "number of Increase() calls applied to the minimum difficulty before computing genesis")
	return cmd
}

func toFlagName(mapstructureName string) string {
	switch mapstructureName {
	case "node_count":
		return "node-count"
	case "mining_nodes":
		return "mining-nodes"
	case "mining_delay":
		return "mining-delay"
	case "run_for":
		return "run-for"
	case "metrics_addr":
		return "metrics-addr"
	default:
		return mapstructureName
	}
}

// run wires cfg.NodeCount nodes into a full mesh over internal/simnet,
// starts mining on the first cfg.MiningNodes of them, serves Prometheus
// metrics, and runs until cfg.RunFor elapses or a termination signal
// arrives — the demo analogue of cmd/node's single-node startup
// choreography, generalized to a whole local mesh.
func run(parent context.Context, log zerolog.Logger, cfg *Config) error {
	reg := prometheus.NewRegistry()
	genesis := chain.Genesis(chain.MinDifficulty())

	net := simnet.NewNetwork()
	nodeIDs := make([]uint32, cfg.NodeCount)
	nodes := make([]*node.Node, cfg.NodeCount)
	for i := 0; i < cfg.NodeCount; i++ {
		id := uint32(i + 1)
		nodeIDs[i] = id

		delay := time.Duration(0)
		if i < cfg.MiningNodes {
			delay = cfg.MiningDelay
		}
		mc := metrics.NewCollector(reg, nodeIDLabel(id))
		nodes[i] = node.New(id, genesis, delay, log, mc)
	}
	net.FullMesh(nodeIDs)

	ctx, cancel := context.WithTimeout(parent, cfg.RunFor)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("received termination signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Int("node_count", cfg.NodeCount).
		Int("mining_nodes", cfg.MiningNodes).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("mesh starting")

	for i, n := range nodes {
		id := nodeIDs[i]
		go func() {
			if err := n.Run(ctx, net.Register(id)); err != nil {
				log.Error().Err(err).Uint32("node_id", id).Msg("node exited with error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("mesh stopping, final chain heights:")
	for i, n := range nodes {
		log.Info().
			Uint32("node_id", nodeIDs[i]).
			Uint64("height", n.CurrentChain().Height()).
			Int("peers", n.PeerCount()).
			Msg("node final state")
	}
	return nil
}

func nodeIDLabel(id uint32) string {
	return "node-" + strconv.FormatUint(uint64(id), 10)
}
