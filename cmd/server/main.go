package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hersh/towerrelay/internal/messaging"
	"github.com/hersh/towerrelay/internal/relay"
	"github.com/hersh/towerrelay/internal/room"
	"github.com/hersh/towerrelay/internal/server"
)

func main() {
	cfg, err := LoadConfig(os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.buildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("running relay", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dir := room.NewDirectory(cfg.Rooms.directoryOpts()...)
	hub := server.NewHub(logger.Named("hub"))

	var emit relay.Emitter = hub
	opts := []server.ServerOpt{server.WithAddr(cfg.Addr())}
	busDone := make(chan error, 1)

	if cfg.Bus.Kind == BusNats {
		bus, err := cfg.Bus.buildNatsServer(logger.Named("nats"))
		if err != nil {
			return fmt.Errorf("creating nats server: %w", err)
		}
		go func() { busDone <- bus.Start(ctx) }()

		select {
		case <-bus.Ready():
		case err := <-busDone:
			return fmt.Errorf("starting nats server: %w", err)
		case <-ctx.Done():
			return <-busDone
		}

		pub := messaging.NewNatsPublisher(bus)
		emit = pub
		opts = append(opts, server.WithSubscriber(pub))
	} else {
		close(busDone)
	}

	handler := relay.NewHandler(dir, emit, logger.Named("relay"))
	srv := server.NewServer(hub, handler, dir, logger.Named("server"), opts...)

	logger.Info("starting relay",
		zap.String("addr", cfg.Addr()),
		zap.String("bus", cfg.Bus.Kind),
		zap.Int("room_capacity", cfg.Rooms.Capacity),
		zap.Int("start_coins", cfg.Rooms.StartCoins),
	)
	err := srv.Start(ctx)

	// Stop the bus after the server so disconnect notices still go out.
	cancel()
	if busErr := <-busDone; busErr != nil && err == nil {
		err = busErr
	}
	return err
}
