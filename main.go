package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	configPath := pflag.String("config", defaultConfigPath(), "Path to config file")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		config.LogLevel = "debug"
	}

	log := newLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, log); err != nil {
		log.Fatal().Err(err).Msg("hostwatch stopped")
	}
	log.Info().Msg("shut down")
}

// run binds both listeners before starting any task so that an unusable
// port fails the process immediately.
func run(ctx context.Context, config *Config, log zerolog.Logger) error {
	page, err := newPageServer(config.StreamAddr, config.WriteTimeout, log.With().Str("component", "page").Logger())
	if err != nil {
		return err
	}

	staticLn, err := net.Listen("tcp", config.StaticAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", config.StaticAddr, err)
	}
	streamLn, err := net.Listen("tcp", config.StreamAddr)
	if err != nil {
		staticLn.Close()
		return fmt.Errorf("listen on %s: %w", config.StreamAddr, err)
	}

	log.Info().Str("version", version).Msg("hostwatch starting")

	bc := newBroadcaster()
	collector := newCollector(newGopsutilProbe(log.With().Str("component", "probe").Logger()))
	poller := newPoller(collector, bc, config.Interval, log.With().Str("component", "poller").Logger())
	stream := newStreamServer(bc, config.WriteTimeout, log.With().Str("component", "stream").Logger())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return page.Serve(ctx, staticLn) })
	g.Go(func() error { return stream.Serve(ctx, streamLn) })
	return g.Wait()
}
