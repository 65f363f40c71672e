// Package main is the entry point for the uni-chain courses dashboard.
// It loads the account identity, connects to the ledger node, starts the
// course snapshot sync and serves the web dashboard.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/adrianncovaci/uni-chain/internal/chain"
	"github.com/adrianncovaci/uni-chain/internal/config"
	"github.com/adrianncovaci/uni-chain/internal/courses"
	"github.com/adrianncovaci/uni-chain/internal/coursesync"
	"github.com/adrianncovaci/uni-chain/internal/identity"
	"github.com/adrianncovaci/uni-chain/internal/web"
)

func main() {
	log.Println("uni-chain dashboard starting...")

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ident, err := identity.LoadOrCreateIdentity(cfg.KeyFile)
	if err != nil {
		log.Fatalf("Failed to load account identity: %v", err)
	}
	log.Printf("Account: %s", ident.Account())

	store, err := courses.NewStore(cfg.DBFile)
	if err != nil {
		log.Fatalf("Failed to initialize course store: %v", err)
	}
	log.Println("Course store initialized")

	client, err := chain.Dial(context.Background(), cfg.NodeURL, ident)
	if err != nil {
		log.Fatalf("Failed to connect to node %s: %v", cfg.NodeURL, err)
	}
	defer client.Close()
	log.Printf("Connected to node %s", cfg.NodeURL)

	port := resolvePort(cfg.Port)
	if err := ensurePortAvailable(port); err != nil {
		log.Fatalf("Port %d unavailable: %v", port, err)
	}

	server, err := web.NewServer(store, client, ident.Account(), port, cfg.DocsDir)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	uiLog := server.Logger()
	client.SetDisconnectHandler(func(err error) {
		server.PushStatus(fmt.Sprintf("Node connection lost: %v", err))
	})

	syncer := coursesync.New(client, store, uiLog, server.PushStatus)
	syncer.Start(context.Background())
	defer syncer.Stop()
	log.Println("Course sync started")

	serverErrors := server.Start()
	go func() {
		if err := <-serverErrors; err != nil {
			log.Fatalf("Web server exited: %v", err)
		}
	}()
	log.Printf("Web dashboard available at http://localhost:%d", port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
}

func resolvePort(defaultPort int) int {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		return defaultPort
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		log.Printf("Warning: invalid PORT value %q, using %d", portStr, defaultPort)
		return defaultPort
	}

	return port
}

func ensurePortAvailable(port int) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return listener.Close()
}
