package kafka

// Broker describes one broker node.
type Broker struct {
	NodeID int32  `json:"node_id"`
	Host   string `json:"host"`
	Port   int32  `json:"port"`
	Rack   string `json:"rack,omitempty"`
}

// ClusterDescription is the result of describing a cluster.
type ClusterDescription struct {
	ClusterID    string   `json:"cluster_id,omitempty"`
	ControllerID int32    `json:"controller_id"`
	Brokers      []Broker `json:"brokers"`
}

// ConfigEntry is one configuration key/value on a topic or broker.
type ConfigEntry struct {
	Name        string `json:"name"`
	Value       string `json:"value,omitempty"`
	ReadOnly    bool   `json:"read_only"`
	IsDefault   bool   `json:"is_default"`
	IsSensitive bool   `json:"is_sensitive"`
}

// BrokerConfig is the result of describing one broker's configuration.
type BrokerConfig struct {
	BrokerID int32         `json:"broker_id"`
	Configs  []ConfigEntry `json:"configs"`
}

// PartitionDetail describes one partition of a topic.
type PartitionDetail struct {
	Partition int32   `json:"partition"`
	Leader    int32   `json:"leader"`
	Replicas  []int32 `json:"replicas"`
	ISR       []int32 `json:"isr"`
}

// TopicDetail describes one topic, optionally carrying its configuration.
type TopicDetail struct {
	Name       string            `json:"name"`
	IsInternal bool              `json:"is_internal"`
	Partitions []PartitionDetail `json:"partitions"`
	Configs    []ConfigEntry     `json:"configs,omitempty"`
}

// TopicResult is a per-topic outcome of a mutating topic operation. A zero
// error code means success.
type TopicResult struct {
	Topic        string `json:"topic"`
	ErrorCode    int16  `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// CreateTopicResult is the result of a topic creation. An empty Topics list
// is a valid success: it is what an if-not-exists create returns when the
// topic already existed.
type CreateTopicResult struct {
	Topics []TopicResult `json:"topics"`
}

// DeleteTopicsResult is the result of a topic deletion, real or dry-run.
// Both paths produce this exact shape.
type DeleteTopicsResult struct {
	Topics []TopicResult `json:"topics"`
}

// AlterConfigsResource is the per-resource outcome of a config alteration.
type AlterConfigsResource struct {
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
	ErrorCode    int16  `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// AlterConfigsResult is the result of altering configuration, real or
// dry-run.
type AlterConfigsResult struct {
	Resources []AlterConfigsResource `json:"resources"`
}

// OffsetEntry is one committed offset of a consumer group.
type OffsetEntry struct {
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
	Metadata  string `json:"metadata,omitempty"`
}

// GroupOffsets maps topic names to the group's committed offsets.
type GroupOffsets struct {
	Group   string                   `json:"group"`
	Offsets map[string][]OffsetEntry `json:"offsets"`
}

// GroupMember is one member of a consumer group.
type GroupMember struct {
	MemberID   string `json:"member_id"`
	InstanceID string `json:"instance_id,omitempty"`
	ClientID   string `json:"client_id"`
	ClientHost string `json:"client_host"`
}

// GroupDescription describes one consumer group.
type GroupDescription struct {
	Group        string        `json:"group"`
	State        string        `json:"state"`
	ProtocolType string        `json:"protocol_type"`
	Protocol     string        `json:"protocol"`
	Members      []GroupMember `json:"members"`
	ErrorCode    int16         `json:"error_code"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// DeleteGroupResult is the per-group outcome of a group deletion.
type DeleteGroupResult struct {
	Group        string `json:"group"`
	ErrorCode    int16  `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}
