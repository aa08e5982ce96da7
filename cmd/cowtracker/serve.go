package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/config"
	"github.com/lucassmelendez/ct-fastapi/internal/herd"
	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
	"github.com/lucassmelendez/ct-fastapi/internal/web"
	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CowTracker HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	herdStore, err := herd.NewStore(cfg.Herd.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open herd database: %w", err)
	}
	defer herdStore.Close()

	gateway := webpay.NewClient(
		cfg.WebpayHost(),
		cfg.Webpay.CommerceCode,
		cfg.Webpay.APIKey,
		time.Duration(cfg.Webpay.TimeoutSeconds)*time.Second,
	)
	series := bcentral.NewClient(cfg.BCentral.BaseURL, cfg.BCentral.User, cfg.BCentral.Password)

	engine := payments.NewEngine(gateway, ledger.New(), cfg.Webpay.ReturnURL)
	server := web.NewServer(engine, series, herdStore, cfg.Server.CORSOrigins)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("CowTracker API listening on %s (webpay environment: %s)", addr, cfg.Webpay.Environment)
	if err := server.Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Println("server stopped")
	return nil
}
