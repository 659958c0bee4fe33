// Package mcp provides the MCP server boundary for the Kafka admin tools.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/khanghua1505/mcp-kafka/internal/kafka"
)

// RegisterResources registers MCP resources with the server.
func RegisterResources(s *server.MCPServer, registry *kafka.Registry) {
	s.AddResource(mcp.Resource{
		URI:         "mcp-kafka://clusters",
		Name:        "Configured Kafka Clusters",
		Description: "The set of Kafka clusters this server is configured to administer, with descriptions and bootstrap servers.",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		slog.InfoContext(ctx, "Fetching clusters resource", "uri", req.Params.URI)

		type clusterInfo struct {
			Name             string   `json:"name"`
			Description      string   `json:"description,omitempty"`
			BootstrapServers []string `json:"bootstrap_servers"`
		}
		clusters := make([]clusterInfo, 0)
		for _, name := range registry.ClusterNames() {
			def, err := registry.Definition(name)
			if err != nil {
				continue
			}
			clusters = append(clusters, clusterInfo{
				Name:             name,
				Description:      def.Description,
				BootstrapServers: def.BootstrapServers.Normalized(),
			})
		}

		data, err := json.Marshal(clusters)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}}, nil
	})
}
