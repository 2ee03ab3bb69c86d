package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/danneforslund/zappagateway/internal/bridge"
	"github.com/danneforslund/zappagateway/internal/config"
	"github.com/danneforslund/zappagateway/internal/relay"
	"github.com/danneforslund/zappagateway/internal/sched"
	"github.com/danneforslund/zappagateway/internal/session"
	"github.com/danneforslund/zappagateway/internal/status"
)

func main() {
	lanAddr := flag.String("lan", "", "LAN-side interface address (required)")
	iptvAddr := flag.String("iptv", "", "IPTV-side interface address (required)")
	configPath := flag.String("config", "zappagateway.yaml", "Path to config file")
	statusPort := flag.Int("status-port", 0, "Override status server port")
	noStatus := flag.Bool("no-status", false, "Disable the status server")
	flag.Parse()

	if *lanAddr == "" || *iptvAddr == "" {
		fmt.Fprintln(os.Stderr, "usage: zappagateway -lan <address> -iptv <address> [-config <file>]")
		os.Exit(2)
	}
	lanIP := parseIPv4(*lanAddr, "LAN")
	iptvIP := parseIPv4(*iptvAddr, "IPTV")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *statusPort > 0 {
		cfg.Status.Port = *statusPort
	}
	if *noStatus {
		cfg.Status.Enabled = false
	}

	registry := session.NewRegistry(iptvIP)
	rly, err := relay.New(lanIP, registry, cfg.Relay.BufferSize)
	if err != nil {
		log.Fatalf("Failed to start multicast relay: %v", err)
	}
	defer rly.Close()

	brg := bridge.New(cfg.Relay.BufferSize)
	scheduler := sched.New(registry, rly, brg, cfg.Scheduler.Tick.Std())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	if cfg.Status.Enabled {
		broadcaster := status.NewBroadcaster(registry, cfg.Status.BroadcastThrottle.Std(), cfg.Status.SnapshotInterval.Std())
		server := status.NewServer(registry, broadcaster)
		g.Go(func() error {
			return broadcaster.Run(ctx)
		})
		g.Go(func() error {
			return server.Run(ctx, cfg.Status.Host, cfg.Status.Port)
		})
	}

	log.Printf("zappagateway relaying between %s (lan) and %s (iptv)", lanIP, iptvIP)
	if err := g.Wait(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

func parseIPv4(addr, side string) net.IP {
	ip := net.ParseIP(addr)
	if ip != nil {
		ip = ip.To4()
	}
	if ip == nil {
		log.Fatalf("Invalid %s address: %q", side, addr)
	}
	return ip
}
