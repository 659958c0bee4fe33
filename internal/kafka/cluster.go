package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// ClusterAdmin answers cluster and broker introspection requests over one
// connection. It holds no state of its own.
type ClusterAdmin struct {
	conn *Conn
}

// NewClusterAdmin returns a ClusterAdmin over the given connection.
func NewClusterAdmin(conn *Conn) *ClusterAdmin {
	return &ClusterAdmin{conn: conn}
}

// DescribeCluster fetches cluster-wide metadata: the broker list, the
// controller ID, and the cluster ID.
func (a *ClusterAdmin) DescribeCluster(ctx context.Context) (*ClusterDescription, error) {
	req := kmsg.NewPtrMetadataRequest()
	req.Topics = []kmsg.MetadataRequestTopic{} // brokers only, no topic metadata

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("describe cluster", err)
	}

	desc := &ClusterDescription{
		ControllerID: resp.ControllerID,
		Brokers:      make([]Broker, 0, len(resp.Brokers)),
	}
	if resp.ClusterID != nil {
		desc.ClusterID = *resp.ClusterID
	}
	for _, b := range resp.Brokers {
		broker := Broker{NodeID: b.NodeID, Host: b.Host, Port: b.Port}
		if b.Rack != nil {
			broker.Rack = *b.Rack
		}
		desc.Brokers = append(desc.Brokers, broker)
	}
	return desc, nil
}

// DescribeBroker fetches one broker's configuration. An unknown broker ID
// comes back as the broker-side error, unchanged.
func (a *ClusterAdmin) DescribeBroker(ctx context.Context, brokerID int32) (*BrokerConfig, error) {
	req := kmsg.NewPtrDescribeConfigsRequest()
	res := kmsg.NewDescribeConfigsRequestResource()
	res.ResourceType = kmsg.ConfigResourceTypeBroker
	res.ResourceName = strconv.FormatInt(int64(brokerID), 10)
	req.Resources = append(req.Resources, res)

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("describe broker", err)
	}
	if len(resp.Resources) == 0 {
		return nil, remoteErr("describe broker", fmt.Errorf("empty response for broker %d", brokerID))
	}

	resource := resp.Resources[0]
	if resource.ErrorCode != 0 {
		return nil, remoteErr("describe broker", kerr.ErrorForCode(resource.ErrorCode))
	}

	return &BrokerConfig{
		BrokerID: brokerID,
		Configs:  configEntries(resource.Configs),
	}, nil
}

func configEntries(configs []kmsg.DescribeConfigsResponseResourceConfig) []ConfigEntry {
	entries := make([]ConfigEntry, 0, len(configs))
	for _, c := range configs {
		entry := ConfigEntry{
			Name:        c.Name,
			ReadOnly:    c.ReadOnly,
			IsDefault:   c.IsDefault,
			IsSensitive: c.IsSensitive,
		}
		if c.Value != nil {
			entry.Value = *c.Value
		}
		entries = append(entries, entry)
	}
	return entries
}
