package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	oauth "github.com/tuannvm/oauth-mcp-proxy"

	"github.com/khanghua1505/mcp-kafka/internal/config"
	"github.com/khanghua1505/mcp-kafka/internal/kafka"
	"github.com/khanghua1505/mcp-kafka/internal/mcp"
)

// Version is set during build via -X ldflags
var Version = "dev"

func main() {
	var (
		clustersConfig   string
		clientProperties string
		transport        string
		httpPort         int
	)

	rootCmd := &cobra.Command{
		Use:          "mcp-kafka",
		Short:        "A Model Context Protocol (MCP) server for Kafka administration",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cmd.Flags().Changed("transport") {
				cfg.MCPTransport = transport
			}
			if cmd.Flags().Changed("http-port") {
				cfg.HTTPPort = httpPort
			}
			if err := cfg.LoadClusters(clustersConfig, clientProperties); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVar(&clustersConfig, "clusters-config", "", "Path to the clusters configuration file")
	rootCmd.Flags().StringVar(&clientProperties, "client-properties", "", "Path to a Java client properties file for the default cluster")
	rootCmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (\"stdio\" or \"http\")")
	rootCmd.Flags().IntVar(&httpPort, "http-port", 8080, "HTTP server port for the http transport")

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	registry := kafka.NewRegistry(cfg.KafkaClientID, cfg.Clusters)
	defer registry.CloseAll()

	// Create HTTP mux and OAuth option if using HTTP transport
	var mux *http.ServeMux
	var oauthOption mcpserver.ServerOption
	var oauthServer *oauth.Server
	var err error

	if cfg.MCPTransport == "http" {
		mux = http.NewServeMux()
		oauthOption, oauthServer, err = mcp.CreateOAuthOption(cfg, mux)
		if err != nil {
			return err
		}
	}

	var s *mcpserver.MCPServer
	if oauthOption != nil {
		s = mcp.NewMCPServer("mcp-kafka", Version, oauthOption)
	} else {
		s = mcp.NewMCPServer("mcp-kafka", Version)
	}

	mcp.RegisterResources(s, registry)
	mcp.RegisterTools(s, registry)

	if oauthServer != nil {
		oauthServer.LogStartup(false)
	}

	slog.Info("Starting Kafka MCP server",
		"version", Version,
		"transport", cfg.MCPTransport,
		"clusters", registry.ClusterNames())
	if err := mcp.Start(ctx, s, cfg, mux); err != nil {
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
