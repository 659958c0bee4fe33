package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// describeConfigsBatchSize caps how many topics a single DescribeConfigs
// request may name. Larger describe calls are split into batches of this
// size.
const describeConfigsBatchSize = 10

// errCodeUnknownTopic is the Kafka error code a dry-run alter reports for a
// topic that does not exist (UNKNOWN_TOPIC_OR_PARTITION).
const errCodeUnknownTopic = 3

// TopicAdmin manages topics over one connection. It holds no state of its
// own; every method is one logical administrative action.
type TopicAdmin struct {
	conn *Conn
}

// NewTopicAdmin returns a TopicAdmin over the given connection.
func NewTopicAdmin(conn *Conn) *TopicAdmin {
	return &TopicAdmin{conn: conn}
}

// CreateTopic creates a topic. With ifNotExists set, an already existing
// topic is an empty success and no create request is sent. With dryRun set,
// the brokers validate the request without committing it.
func (a *TopicAdmin) CreateTopic(ctx context.Context, name string, partitions int32, replicationFactor int16, ifNotExists bool, configs map[string]string, dryRun bool) (*CreateTopicResult, error) {
	if ifNotExists {
		existing, err := a.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		for _, topic := range existing {
			if topic == name {
				slog.InfoContext(ctx, "Topic already exists, skipping creation", "topic", name)
				return &CreateTopicResult{Topics: []TopicResult{}}, nil
			}
		}
	}

	req := kmsg.NewPtrCreateTopicsRequest()
	req.ValidateOnly = dryRun
	topic := kmsg.NewCreateTopicsRequestTopic()
	topic.Topic = name
	topic.NumPartitions = partitions
	topic.ReplicationFactor = replicationFactor
	for k, v := range configs {
		cfg := kmsg.NewCreateTopicsRequestTopicConfig()
		cfg.Name = k
		cfg.Value = kmsg.StringPtr(v)
		topic.Configs = append(topic.Configs, cfg)
	}
	req.Topics = append(req.Topics, topic)

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("create topic", err)
	}

	result := &CreateTopicResult{Topics: make([]TopicResult, 0, len(resp.Topics))}
	for _, t := range resp.Topics {
		result.Topics = append(result.Topics, TopicResult{
			Topic:        t.Topic,
			ErrorCode:    t.ErrorCode,
			ErrorMessage: strOrEmpty(t.ErrorMessage),
		})
	}
	return result, nil
}

// ListTopics returns all topic names known to the cluster, sorted.
func (a *TopicAdmin) ListTopics(ctx context.Context) ([]string, error) {
	resp, err := a.topicMetadata(ctx, nil)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		if t.ErrorCode != 0 || t.Topic == nil {
			continue
		}
		topics = append(topics, *t.Topic)
	}
	sort.Strings(topics)
	return topics, nil
}

// DescribeTopics fetches metadata for the named topics, or for all topics
// when names is empty. With includeConfigs set, each topic's configuration
// is fetched and attached, in batches of at most describeConfigsBatchSize
// topics per request.
func (a *TopicAdmin) DescribeTopics(ctx context.Context, names []string, includeConfigs bool) ([]TopicDetail, error) {
	resp, err := a.topicMetadata(ctx, names)
	if err != nil {
		return nil, err
	}

	details := make([]TopicDetail, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		if t.Topic == nil {
			continue
		}
		if t.ErrorCode != 0 {
			slog.WarnContext(ctx, "Error fetching topic metadata", "topic", *t.Topic, "error", kerr.ErrorForCode(t.ErrorCode))
			continue
		}
		detail := TopicDetail{
			Name:       *t.Topic,
			IsInternal: t.IsInternal,
			Partitions: make([]PartitionDetail, 0, len(t.Partitions)),
		}
		for _, p := range t.Partitions {
			detail.Partitions = append(detail.Partitions, PartitionDetail{
				Partition: p.Partition,
				Leader:    p.Leader,
				Replicas:  p.Replicas,
				ISR:       p.ISR,
			})
		}
		details = append(details, detail)
	}

	if includeConfigs {
		if err := a.attachConfigs(ctx, details); err != nil {
			return nil, err
		}
	}
	return details, nil
}

// attachConfigs fetches and attaches per-topic configuration.
func (a *TopicAdmin) attachConfigs(ctx context.Context, details []TopicDetail) error {
	byName := make(map[string]*TopicDetail, len(details))
	names := make([]string, 0, len(details))
	for i := range details {
		byName[details[i].Name] = &details[i]
		names = append(names, details[i].Name)
	}

	for start := 0; start < len(names); start += describeConfigsBatchSize {
		end := start + describeConfigsBatchSize
		if end > len(names) {
			end = len(names)
		}

		req := kmsg.NewPtrDescribeConfigsRequest()
		for _, name := range names[start:end] {
			res := kmsg.NewDescribeConfigsRequestResource()
			res.ResourceType = kmsg.ConfigResourceTypeTopic
			res.ResourceName = name
			req.Resources = append(req.Resources, res)
		}

		resp, err := req.RequestWith(ctx, a.conn.cl)
		if err != nil {
			return remoteErr("describe topic configs", err)
		}
		for _, resource := range resp.Resources {
			if resource.ErrorCode != 0 {
				slog.WarnContext(ctx, "Error fetching topic config", "topic", resource.ResourceName, "error", kerr.ErrorForCode(resource.ErrorCode))
				continue
			}
			if detail, ok := byName[resource.ResourceName]; ok {
				detail.Configs = configEntries(resource.Configs)
			}
		}
	}
	return nil
}

// DeleteTopics deletes the named topics. A dry run does not touch the
// cluster: it synthesizes a response with a zero error code per topic, in
// the same shape a real deletion produces.
func (a *TopicAdmin) DeleteTopics(ctx context.Context, names []string, dryRun bool) (*DeleteTopicsResult, error) {
	if dryRun {
		result := &DeleteTopicsResult{Topics: make([]TopicResult, 0, len(names))}
		for _, name := range names {
			result.Topics = append(result.Topics, TopicResult{Topic: name})
		}
		return result, nil
	}

	req := kmsg.NewPtrDeleteTopicsRequest()
	req.TopicNames = names
	for _, name := range names {
		t := kmsg.NewDeleteTopicsRequestTopic()
		t.Topic = kmsg.StringPtr(name)
		req.Topics = append(req.Topics, t)
	}

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("delete topics", err)
	}

	result := &DeleteTopicsResult{Topics: make([]TopicResult, 0, len(resp.Topics))}
	for _, t := range resp.Topics {
		result.Topics = append(result.Topics, TopicResult{
			Topic:        strOrEmpty(t.Topic),
			ErrorCode:    t.ErrorCode,
			ErrorMessage: strOrEmpty(t.ErrorMessage),
		})
	}
	return result, nil
}

// AlterTopic alters a topic's configuration. A dry run commits nothing: it
// checks existence via a metadata describe and synthesizes the per-resource
// result a real alteration would produce, failure-coded when the topic does
// not exist.
func (a *TopicAdmin) AlterTopic(ctx context.Context, name string, configs map[string]string, dryRun bool) (*AlterConfigsResult, error) {
	if dryRun {
		exists, err := a.topicExists(ctx, name)
		if err != nil {
			return nil, err
		}
		resource := AlterConfigsResource{
			ResourceType: "topic",
			ResourceName: name,
		}
		if !exists {
			resource.ErrorCode = errCodeUnknownTopic
			resource.ErrorMessage = fmt.Sprintf("The topic '%s' does not exist.", name)
		}
		return &AlterConfigsResult{Resources: []AlterConfigsResource{resource}}, nil
	}

	req := kmsg.NewPtrAlterConfigsRequest()
	res := kmsg.NewAlterConfigsRequestResource()
	res.ResourceType = kmsg.ConfigResourceTypeTopic
	res.ResourceName = name
	for k, v := range configs {
		cfg := kmsg.NewAlterConfigsRequestResourceConfig()
		cfg.Name = k
		cfg.Value = kmsg.StringPtr(v)
		res.Configs = append(res.Configs, cfg)
	}
	req.Resources = append(req.Resources, res)

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("alter topic", err)
	}

	result := &AlterConfigsResult{Resources: make([]AlterConfigsResource, 0, len(resp.Resources))}
	for _, r := range resp.Resources {
		result.Resources = append(result.Resources, AlterConfigsResource{
			ResourceType: "topic",
			ResourceName: r.ResourceName,
			ErrorCode:    r.ErrorCode,
			ErrorMessage: strOrEmpty(r.ErrorMessage),
		})
	}
	return result, nil
}

func (a *TopicAdmin) topicExists(ctx context.Context, name string) (bool, error) {
	resp, err := a.topicMetadata(ctx, []string{name})
	if err != nil {
		return false, err
	}
	for _, t := range resp.Topics {
		if t.Topic != nil && *t.Topic == name && t.ErrorCode == 0 {
			return true, nil
		}
	}
	return false, nil
}

// topicMetadata fetches metadata for the named topics, or for all topics
// when names is nil or empty.
func (a *TopicAdmin) topicMetadata(ctx context.Context, names []string) (*kmsg.MetadataResponse, error) {
	req := kmsg.NewPtrMetadataRequest()
	if len(names) > 0 {
		for _, name := range names {
			t := kmsg.NewMetadataRequestTopic()
			t.Topic = kmsg.StringPtr(name)
			req.Topics = append(req.Topics, t)
		}
	}

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("topic metadata", err)
	}
	return resp, nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
