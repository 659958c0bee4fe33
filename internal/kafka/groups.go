package kafka

import (
	"context"
	"sort"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// GroupAdmin manages consumer groups over one connection.
type GroupAdmin struct {
	conn *Conn
}

// NewGroupAdmin returns a GroupAdmin over the given connection.
func NewGroupAdmin(conn *Conn) *GroupAdmin {
	return &GroupAdmin{conn: conn}
}

// ListGroups lists consumer group IDs known to the cluster. When brokerIDs
// is non-empty only groups coordinated by those brokers are returned, and
// failures on brokers outside that scope are ignored. Only the group
// identifiers survive; per-group protocol metadata from the listing is
// discarded.
func (a *GroupAdmin) ListGroups(ctx context.Context, brokerIDs []int32) ([]string, error) {
	req := kmsg.NewPtrListGroupsRequest()
	shards := a.conn.cl.RequestSharded(ctx, req)

	wanted := make(map[int32]bool, len(brokerIDs))
	for _, id := range brokerIDs {
		wanted[id] = true
	}

	groupSet := make(map[string]struct{})
	for _, shard := range shards {
		if len(wanted) > 0 && !wanted[shard.Meta.NodeID] {
			continue
		}
		if shard.Err != nil {
			return nil, remoteErr("list groups", shard.Err)
		}
		resp, ok := shard.Resp.(*kmsg.ListGroupsResponse)
		if !ok {
			continue
		}
		if err := kerr.ErrorForCode(resp.ErrorCode); err != nil {
			return nil, remoteErr("list groups", err)
		}
		for _, g := range resp.Groups {
			groupSet[g.Group] = struct{}{}
		}
	}

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

// ListGroupOffsets fetches all committed offsets of one consumer group.
func (a *GroupAdmin) ListGroupOffsets(ctx context.Context, group string) (*GroupOffsets, error) {
	req := kmsg.NewPtrOffsetFetchRequest()
	req.Group = group
	req.Topics = nil // all topics
	g := kmsg.NewOffsetFetchRequestGroup()
	g.Group = group
	req.Groups = append(req.Groups, g)

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("list group offsets", err)
	}

	result := &GroupOffsets{Group: group, Offsets: make(map[string][]OffsetEntry)}

	// Newer brokers answer through the per-group shape, older ones through
	// the top-level topics.
	topics := resp.Topics
	if len(resp.Groups) > 0 {
		if err := kerr.ErrorForCode(resp.Groups[0].ErrorCode); err != nil {
			return nil, remoteErr("list group offsets", err)
		}
		for _, t := range resp.Groups[0].Topics {
			for _, p := range t.Partitions {
				if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
					return nil, remoteErr("list group offsets", err)
				}
				result.Offsets[t.Topic] = append(result.Offsets[t.Topic], OffsetEntry{
					Partition: p.Partition,
					Offset:    p.Offset,
					Metadata:  strOrEmpty(p.Metadata),
				})
			}
		}
		return result, nil
	}

	if err := kerr.ErrorForCode(resp.ErrorCode); err != nil {
		return nil, remoteErr("list group offsets", err)
	}
	for _, t := range topics {
		for _, p := range t.Partitions {
			if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
				return nil, remoteErr("list group offsets", err)
			}
			result.Offsets[t.Topic] = append(result.Offsets[t.Topic], OffsetEntry{
				Partition: p.Partition,
				Offset:    p.Offset,
				Metadata:  strOrEmpty(p.Metadata),
			})
		}
	}
	return result, nil
}

// DescribeGroups fetches a detailed description per consumer group.
func (a *GroupAdmin) DescribeGroups(ctx context.Context, groupIDs []string) ([]GroupDescription, error) {
	req := kmsg.NewPtrDescribeGroupsRequest()
	req.Groups = groupIDs

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("describe groups", err)
	}

	descriptions := make([]GroupDescription, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		desc := GroupDescription{
			Group:        g.Group,
			State:        g.State,
			ProtocolType: g.ProtocolType,
			Protocol:     g.Protocol,
			Members:      make([]GroupMember, 0, len(g.Members)),
			ErrorCode:    g.ErrorCode,
		}
		if err := kerr.ErrorForCode(g.ErrorCode); err != nil {
			desc.ErrorMessage = err.Error()
		}
		for _, m := range g.Members {
			member := GroupMember{
				MemberID:   m.MemberID,
				ClientID:   m.ClientID,
				ClientHost: m.ClientHost,
			}
			if m.InstanceID != nil {
				member.InstanceID = *m.InstanceID
			}
			desc.Members = append(desc.Members, member)
		}
		descriptions = append(descriptions, desc)
	}
	return descriptions, nil
}

// DeleteGroup deletes exactly one consumer group, wrapped as a singleton
// list to the bulk delete request.
func (a *GroupAdmin) DeleteGroup(ctx context.Context, group string) (*DeleteGroupResult, error) {
	req := kmsg.NewPtrDeleteGroupsRequest()
	req.Groups = []string{group}

	resp, err := req.RequestWith(ctx, a.conn.cl)
	if err != nil {
		return nil, remoteErr("delete group", err)
	}
	if len(resp.Groups) == 0 {
		return &DeleteGroupResult{Group: group}, nil
	}

	g := resp.Groups[0]
	result := &DeleteGroupResult{Group: g.Group, ErrorCode: g.ErrorCode}
	if err := kerr.ErrorForCode(g.ErrorCode); err != nil {
		result.ErrorMessage = err.Error()
	}
	return result, nil
}
