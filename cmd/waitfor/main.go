package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	addrs    = flag.String("addrs", "localhost:5432", "comma separated host:port list that must accept TCP connections")
	attempts = flag.Int("attempts", 20, "attempts per address")
	delay    = flag.Duration("delay", time.Second, "pause between two attempts")
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// waitFor returns once every address accepted a connection, or fails after the given attempts.
func waitFor(ctx context.Context, dial dialFunc, addrs []string, attempts int, delay time.Duration) error {
	for _, addr := range addrs {
		var err error
		for i := 1; i <= attempts; i++ {
			var conn net.Conn
			conn, err = dial(ctx, "tcp", addr)
			if err == nil {
				conn.Close()
				log.WithField("addr", addr).Info("TCP connection available")
				break
			}
			log.WithError(err).WithField("addr", addr).WithField("attempt", i).Info("connection not yet available")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err != nil {
			return fmt.Errorf("could not open TCP connection on [%s] after %d attempts: %w", addr, attempts, err)
		}
	}
	return nil
}

func main() {
	flag.Parse()

	var targets []string
	for _, addr := range strings.Split(*addrs, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			targets = append(targets, addr)
		}
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if err := waitFor(context.Background(), dialer.DialContext, targets, *attempts, *delay); err != nil {
		log.WithError(err).Fatal("dependencies not reachable")
	}
}
