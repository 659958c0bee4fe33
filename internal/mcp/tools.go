package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/khanghua1505/mcp-kafka/internal/kafka"
)

// resolveConn picks the connection for a tool call. An empty cluster
// argument means the sole configured cluster; with several clusters
// configured the caller has to name one.
func resolveConn(ctx context.Context, registry *kafka.Registry, cluster string) (*kafka.Conn, error) {
	if cluster == "" {
		names := registry.ClusterNames()
		if len(names) != 1 {
			return nil, fmt.Errorf("multiple clusters configured (%v); specify the 'cluster' argument", names)
		}
		cluster = names[0]
	}
	return registry.Conn(ctx, cluster)
}

// toolResultJSON marshals a result value into a text tool result.
func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("Internal server error: failed to marshal results"), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// toolError logs the failure and wraps it into an error tool result. Every
// handler returns either data or an error message, never both.
func toolError(ctx context.Context, message string, err error) (*mcp.CallToolResult, error) {
	slog.ErrorContext(ctx, message, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", message, err)), nil
}

// withCluster adds the shared optional cluster selector argument.
func withCluster() mcp.ToolOption {
	return mcp.WithString("cluster", mcp.Description("Name of the configured cluster to operate on. Optional when exactly one cluster is configured."))
}

// configsArg reads the optional 'configs' object argument as a string map.
func configsArg(req mcp.CallToolRequest) map[string]string {
	raw, ok := req.GetArguments()["configs"].(map[string]any)
	if !ok {
		return nil
	}
	configs := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case float64:
			configs[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			configs[k] = fmt.Sprint(val)
		}
	}
	return configs
}

// RegisterTools defines and registers the administrative MCP tools.
func RegisterTools(s *server.MCPServer, registry *kafka.Registry) {
	// --- list_clusters ---
	listClustersTool := mcp.NewTool("list_clusters",
		mcp.WithDescription("Lists the configured Kafka clusters with their descriptions and bootstrap servers."),
	)

	s.AddTool(listClustersTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slog.InfoContext(ctx, "Executing list_clusters tool")

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
		return toolResultJSON(clusters)
	})

	// --- describe_cluster ---
	describeClusterTool := mcp.NewTool("describe_cluster",
		mcp.WithDescription("Fetches cluster-wide metadata: the broker list, the controller ID, and the cluster ID."),
		withCluster(),
	)

	s.AddTool(describeClusterTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing describe_cluster tool", "cluster", cluster)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error describing cluster", err)
		}
		desc, err := kafka.NewClusterAdmin(conn).DescribeCluster(ctx)
		if err != nil {
			return toolError(ctx, "Error describing cluster", err)
		}
		return toolResultJSON(desc)
	})

	// --- describe_broker ---
	describeBrokerTool := mcp.NewTool("describe_broker",
		mcp.WithDescription("Fetches the configuration of the specified broker."),
		mcp.WithNumber("broker_id", mcp.Required(), mcp.Description("The ID of the broker to describe.")),
		withCluster(),
	)

	s.AddTool(describeBrokerTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		brokerID := req.GetInt("broker_id", -1)
		if brokerID < 0 {
			return mcp.NewToolResultError("Missing or invalid required parameter: broker_id (number)"), nil
		}
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing describe_broker tool", "cluster", cluster, "broker_id", brokerID)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error describing broker", err)
		}
		cfg, err := kafka.NewClusterAdmin(conn).DescribeBroker(ctx, int32(brokerID))
		if err != nil {
			return toolError(ctx, "Error describing broker", err)
		}
		return toolResultJSON(cfg)
	})

	// --- create_topic ---
	createTopicTool := mcp.NewTool("create_topic",
		mcp.WithDescription("Creates a new Kafka topic. For important topics provide configs such as retention.ms, cleanup.policy and min.insync.replicas, and keep replication_factor >= min.insync.replicas."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The name of the topic to create.")),
		mcp.WithNumber("num_partitions", mcp.Description("The number of partitions for the topic (default: 3).")),
		mcp.WithNumber("replication_factor", mcp.Description("The replication factor for the topic (default: 3).")),
		mcp.WithBoolean("if_not_exists", mcp.Description("Skip creation without error when the topic already exists.")),
		mcp.WithObject("configs", mcp.Description("Topic configuration overrides, e.g. {\"retention.ms\": \"604800000\"}.")),
		mcp.WithBoolean("dry_run", mcp.Description("Validate the request without creating the topic.")),
		withCluster(),
	)

	s.AddTool(createTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil || name == "" {
			return mcp.NewToolResultError("Missing or invalid required parameter: name (string)"), nil
		}
		numPartitions := req.GetInt("num_partitions", 3)
		replicationFactor := req.GetInt("replication_factor", 3)
		ifNotExists := req.GetBool("if_not_exists", false)
		dryRun := req.GetBool("dry_run", false)
		cluster := req.GetString("cluster", "")

		slog.InfoContext(ctx, "Executing create_topic tool",
			"cluster", cluster, "topic", name,
			"num_partitions", numPartitions, "replication_factor", replicationFactor,
			"if_not_exists", ifNotExists, "dry_run", dryRun)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error creating topic", err)
		}
		result, err := kafka.NewTopicAdmin(conn).CreateTopic(ctx, name, int32(numPartitions), int16(replicationFactor), ifNotExists, configsArg(req), dryRun)
		if err != nil {
			return toolError(ctx, "Error creating topic", err)
		}
		return toolResultJSON(result)
	})

	// --- list_topics ---
	listTopicsTool := mcp.NewTool("list_topics",
		mcp.WithDescription("Lists all topics in the Kafka cluster."),
		withCluster(),
	)

	s.AddTool(listTopicsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing list_topics tool", "cluster", cluster)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error listing topics", err)
		}
		topics, err := kafka.NewTopicAdmin(conn).ListTopics(ctx)
		if err != nil {
			return toolError(ctx, "Error listing topics", err)
		}
		return toolResultJSON(topics)
	})

	// --- describe_topics ---
	describeTopicsTool := mcp.NewTool("describe_topics",
		mcp.WithDescription("Fetches metadata for the specified topics, or for all topics when none are given. Optionally includes per-topic configuration."),
		mcp.WithArray("topics", mcp.Description("List of topic names to describe. All topics when empty.")),
		mcp.WithBoolean("include_topic_configs", mcp.Description("Include topic configurations in the response.")),
		withCluster(),
	)

	s.AddTool(describeTopicsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topics := req.GetStringSlice("topics", nil)
		includeConfigs := req.GetBool("include_topic_configs", false)
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing describe_topics tool", "cluster", cluster, "topics", topics, "include_configs", includeConfigs)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error describing topics", err)
		}
		details, err := kafka.NewTopicAdmin(conn).DescribeTopics(ctx, topics, includeConfigs)
		if err != nil {
			return toolError(ctx, "Error describing topics", err)
		}
		return toolResultJSON(details)
	})

	// --- update_topic ---
	updateTopicTool := mcp.NewTool("update_topic",
		mcp.WithDescription("Alters the configuration of the specified topic."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The name of the topic to update.")),
		mcp.WithObject("configs", mcp.Required(), mcp.Description("Configuration entries to set on the topic.")),
		mcp.WithBoolean("dry_run", mcp.Description("Check the topic exists and report the would-be result without committing any change.")),
		withCluster(),
	)

	s.AddTool(updateTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil || topic == "" {
			return mcp.NewToolResultError("Missing or invalid required parameter: topic (string)"), nil
		}
		dryRun := req.GetBool("dry_run", false)
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing update_topic tool", "cluster", cluster, "topic", topic, "dry_run", dryRun)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error updating topic", err)
		}
		result, err := kafka.NewTopicAdmin(conn).AlterTopic(ctx, topic, configsArg(req), dryRun)
		if err != nil {
			return toolError(ctx, "Error updating topic", err)
		}
		return toolResultJSON(result)
	})

	// --- delete_topic ---
	deleteTopicTool := mcp.NewTool("delete_topic",
		mcp.WithDescription("Deletes the specified topic. Use dry_run to validate the deletion without actually deleting."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The name of the topic to delete.")),
		mcp.WithBoolean("dry_run", mcp.Description("Synthesize a success response without deleting anything.")),
		withCluster(),
	)

	s.AddTool(deleteTopicTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil || topic == "" {
			return mcp.NewToolResultError("Missing or invalid required parameter: topic (string)"), nil
		}
		dryRun := req.GetBool("dry_run", false)
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing delete_topic tool", "cluster", cluster, "topic", topic, "dry_run", dryRun)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error deleting topic", err)
		}
		result, err := kafka.NewTopicAdmin(conn).DeleteTopics(ctx, []string{topic}, dryRun)
		if err != nil {
			return toolError(ctx, "Error deleting topic", err)
		}
		return toolResultJSON(result)
	})

	// --- list_consumer_groups ---
	listGroupsTool := mcp.NewTool("list_consumer_groups",
		mcp.WithDescription("Lists consumer groups known to the cluster, optionally scoped to the given broker IDs."),
		mcp.WithArray("broker_ids", mcp.Description("Broker node IDs to query for consumer groups. All brokers when empty.")),
		withCluster(),
	)

	s.AddTool(listGroupsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cluster := req.GetString("cluster", "")

		var brokerIDs []int32
		if raw, ok := req.GetArguments()["broker_ids"].([]any); ok {
			for _, v := range raw {
				if f, ok := v.(float64); ok {
					brokerIDs = append(brokerIDs, int32(f))
				}
			}
		}
		slog.InfoContext(ctx, "Executing list_consumer_groups tool", "cluster", cluster, "broker_ids", brokerIDs)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error listing consumer groups", err)
		}
		groups, err := kafka.NewGroupAdmin(conn).ListGroups(ctx, brokerIDs)
		if err != nil {
			return toolError(ctx, "Error listing consumer groups", err)
		}
		return toolResultJSON(groups)
	})

	// --- list_consumer_group_offsets ---
	listOffsetsTool := mcp.NewTool("list_consumer_group_offsets",
		mcp.WithDescription("Lists all committed offsets for a consumer group."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("The ID of the consumer group to list offsets for.")),
		withCluster(),
	)

	s.AddTool(listOffsetsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, err := req.RequireString("group_id")
		if err != nil || groupID == "" {
			return mcp.NewToolResultError("Missing or invalid required parameter: group_id (string)"), nil
		}
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing list_consumer_group_offsets tool", "cluster", cluster, "group", groupID)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error listing consumer group offsets", err)
		}
		offsets, err := kafka.NewGroupAdmin(conn).ListGroupOffsets(ctx, groupID)
		if err != nil {
			return toolError(ctx, "Error listing consumer group offsets", err)
		}
		return toolResultJSON(offsets)
	})

	// --- describe_consumer_groups ---
	describeGroupsTool := mcp.NewTool("describe_consumer_groups",
		mcp.WithDescription("Describes the specified consumer groups, including state, protocol, and members."),
		mcp.WithArray("group_ids", mcp.Required(), mcp.Description("The consumer group IDs to describe.")),
		withCluster(),
	)

	s.AddTool(describeGroupsTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupIDs := req.GetStringSlice("group_ids", nil)
		if len(groupIDs) == 0 {
			return mcp.NewToolResultError("Missing or invalid required parameter: group_ids (list of strings)"), nil
		}
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing describe_consumer_groups tool", "cluster", cluster, "groups", groupIDs)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error describing consumer groups", err)
		}
		descriptions, err := kafka.NewGroupAdmin(conn).DescribeGroups(ctx, groupIDs)
		if err != nil {
			return toolError(ctx, "Error describing consumer groups", err)
		}
		return toolResultJSON(descriptions)
	})

	// --- delete_consumer_group ---
	deleteGroupTool := mcp.NewTool("delete_consumer_group",
		mcp.WithDescription("Deletes a consumer group."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("The ID of the consumer group to delete.")),
		withCluster(),
	)

	s.AddTool(deleteGroupTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, err := req.RequireString("group_id")
		if err != nil || groupID == "" {
			return mcp.NewToolResultError("Missing or invalid required parameter: group_id (string)"), nil
		}
		cluster := req.GetString("cluster", "")
		slog.InfoContext(ctx, "Executing delete_consumer_group tool", "cluster", cluster, "group", groupID)

		conn, err := resolveConn(ctx, registry, cluster)
		if err != nil {
			return toolError(ctx, "Error deleting consumer group", err)
		}
		result, err := kafka.NewGroupAdmin(conn).DeleteGroup(ctx, groupID)
		if err != nil {
			return toolError(ctx, "Error deleting consumer group", err)
		}
		return toolResultJSON(result)
	})
}
