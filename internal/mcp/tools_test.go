package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/khanghua1505/mcp-kafka/internal/config"
	"github.com/khanghua1505/mcp-kafka/internal/kafka"
)

func testRegistry(names ...string) *kafka.Registry {
	defs := make(map[string]config.ClusterConfig, len(names))
	for _, name := range names {
		defs[name] = config.ClusterConfig{BootstrapServers: config.BootstrapServers{"localhost:9092"}}
	}
	return kafka.NewRegistry("test-client", defs)
}

func TestResolveConnAmbiguousWithoutArgument(t *testing.T) {
	registry := testRegistry("prod", "staging")

	_, err := resolveConn(context.Background(), registry, "")
	if err == nil {
		t.Fatal("Expected error when several clusters are configured and none is named")
	}
	if !strings.Contains(err.Error(), "'cluster'") {
		t.Errorf("Expected error to point at the 'cluster' argument, got %v", err)
	}
}

func TestResolveConnUnknownCluster(t *testing.T) {
	registry := testRegistry("prod")

	_, err := resolveConn(context.Background(), registry, "nope")
	if !errors.Is(err, kafka.ErrClusterNotFound) {
		t.Errorf("Expected ErrClusterNotFound, got %v", err)
	}
}

func TestConfigsArg(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{
		"configs": map[string]any{
			"retention.ms":  "604800000",
			"segment.bytes": float64(1048576),
		},
	}

	got := configsArg(req)
	want := map[string]string{
		"retention.ms":  "604800000",
		"segment.bytes": "1048576",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestConfigsArgAbsent(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{}

	if got := configsArg(req); got != nil {
		t.Errorf("Expected nil for absent configs, got %v", got)
	}
}

func TestRegisterTools(t *testing.T) {
	s := NewMCPServer("test-server", "0.0.1")
	RegisterTools(s, testRegistry("prod"))
	RegisterResources(s, testRegistry("prod"))
}

// requestorFunc answers every admin request with one handler.
type requestorFunc func(req kmsg.Request) (kmsg.Response, error)

func (f requestorFunc) Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error) {
	return f(req)
}

func (f requestorFunc) RequestSharded(ctx context.Context, req kmsg.Request) []kgo.ResponseShard {
	resp, err := f(req)
	return []kgo.ResponseShard{{Resp: resp, Err: err}}
}

// toolServer builds a server whose tools run against a fake cluster. Dialed
// cluster names are appended to dialed.
func toolServer(dialed *[]string, handle requestorFunc, names ...string) *server.MCPServer {
	defs := make(map[string]config.ClusterConfig, len(names))
	for _, name := range names {
		defs[name] = config.ClusterConfig{BootstrapServers: config.BootstrapServers{name + ":9092"}}
	}
	registry := kafka.NewRegistryWithDial("test-client", defs,
		func(ctx context.Context, clientID string, servers []string, profile config.SecurityProfile) (*kafka.Conn, error) {
			*dialed = append(*dialed, servers[0])
			return kafka.NewConn(handle), nil
		})

	s := NewMCPServer("test-server", "0.0.1")
	RegisterTools(s, registry)
	return s
}

// toolCallResult is the wire shape of a tools/call response.
type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// callTool drives one registered tool through the server's message handler,
// the same path the stdio transport uses.
func callTool(t *testing.T, s *server.MCPServer, name, arguments string) toolCallResult {
	t.Helper()
	ctx := context.Background()

	s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test-client","version":"0.0.1"}}}`))
	s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))

	raw := s.HandleMessage(ctx, json.RawMessage(fmt.Sprintf(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, name, arguments)))

	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("Failed to marshal tool response: %v", err)
	}
	var resp struct {
		Result toolCallResult `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("Failed to decode tool response %s: %v", data, err)
	}
	if resp.Error != nil {
		t.Fatalf("tools/call %s failed at the protocol level: %s", name, resp.Error.Message)
	}
	return resp.Result
}

func TestToolCallDefaultsToSoleCluster(t *testing.T) {
	var dialed []string
	s := toolServer(&dialed, func(req kmsg.Request) (kmsg.Response, error) {
		if _, ok := req.(*kmsg.MetadataRequest); !ok {
			t.Fatalf("Unexpected request type %T", req)
		}
		resp := kmsg.NewPtrMetadataResponse()
		for _, name := range []string{"orders", "audit"} {
			topic := kmsg.NewMetadataResponseTopic()
			topic.Topic = kmsg.StringPtr(name)
			resp.Topics = append(resp.Topics, topic)
		}
		return resp, nil
	}, "prod")

	// no cluster argument: the lone configured cluster is used
	result := callTool(t, s, "list_topics", `{}`)

	if result.IsError {
		t.Fatalf("Expected success result, got error: %+v", result.Content)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("Expected exactly one text content, got %+v", result.Content)
	}
	var topics []string
	if err := json.Unmarshal([]byte(result.Content[0].Text), &topics); err != nil {
		t.Fatalf("Result text is not JSON data: %v: %s", err, result.Content[0].Text)
	}
	if !reflect.DeepEqual(topics, []string{"audit", "orders"}) {
		t.Errorf("Expected [audit orders], got %v", topics)
	}
	if !reflect.DeepEqual(dialed, []string{"prod:9092"}) {
		t.Errorf("Expected one dial to prod, got %v", dialed)
	}
}

func TestToolCallNamedCluster(t *testing.T) {
	var dialed []string
	s := toolServer(&dialed, func(req kmsg.Request) (kmsg.Response, error) {
		return kmsg.NewPtrMetadataResponse(), nil
	}, "prod", "staging")

	result := callTool(t, s, "list_topics", `{"cluster":"staging"}`)

	if result.IsError {
		t.Fatalf("Expected success result, got error: %+v", result.Content)
	}
	if !reflect.DeepEqual(dialed, []string{"staging:9092"}) {
		t.Errorf("Expected a dial to the named cluster, got %v", dialed)
	}
}

func TestToolCallUnknownClusterReturnsErrorResult(t *testing.T) {
	var dialed []string
	s := toolServer(&dialed, func(req kmsg.Request) (kmsg.Response, error) {
		t.Fatalf("No request expected for an unknown cluster, got %T", req)
		return nil, nil
	}, "prod")

	result := callTool(t, s, "list_topics", `{"cluster":"nope"}`)

	if !result.IsError {
		t.Fatalf("Expected error result, got %+v", result.Content)
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, "cluster not found") {
		t.Errorf("Expected the error message as the only content, got %+v", result.Content)
	}
	if len(dialed) != 0 {
		t.Errorf("Expected no dials for an unknown cluster, got %v", dialed)
	}
}
