// Command chessd is the multi-tenant chess server: it binds one TCP
// listener, accepts a session goroutine per connection, and runs a single
// shared watchdog over every open match. Bootstrap style (loadEnv-like
// config resolution, signal-driven graceful shutdown) is grounded on
// vimsent-L3's gameserver/main.go and matchmaker/main.go, generalized
// from gRPC serve-and-GracefulStop to a plain net.Listener plus
// errgroup-supervised goroutines.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vimsent/chessd/internal/config"
	"github.com/vimsent/chessd/internal/logging"
	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/players"
	"github.com/vimsent/chessd/internal/session"
	"github.com/vimsent/chessd/internal/watchdog"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("chessd: invalid configuration: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, true)

	addr := cfg.IP
	if addr == "any" || addr == "" {
		addr = ""
	}
	listenAddr := fmt.Sprintf("%s:%d", addr, cfg.Port)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Error("failed to listen on %s: %v", listenAddr, err)
		os.Exit(1)
	}
	logger.Info("chessd listening on %s (rooms=%s players=%s)", ln.Addr(), limitString(cfg.MaxRooms), limitString(cfg.MaxPlayers))

	registry := match.NewRegistry()
	counter := players.NewCounter(cfg.MaxPlayers)
	srv := session.NewServer(registry, counter, cfg.MaxRooms, logger)
	wd := watchdog.New(registry, srv, counter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wd.Run()
		return nil
	})

	g.Go(func() error {
		err := srv.Accept(ln)
		if gctx.Err() != nil {
			return nil // shutdown-triggered Accept error, not a real failure
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		wd.Stop()
		return ln.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Error("chessd exited with error: %v", err)
		os.Exit(1)
	}
}

func limitString(n int) string {
	if config.Unlimited(n) {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}
