package kafka

import (
	"context"
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// fakeRequestor stands in for *kgo.Client in facade tests. Every request is
// recorded and answered by the handler.
type fakeRequestor struct {
	handle   func(req kmsg.Request) (kmsg.Response, error)
	requests []kmsg.Request
}

func (f *fakeRequestor) Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error) {
	f.requests = append(f.requests, req)
	return f.handle(req)
}

func (f *fakeRequestor) RequestSharded(ctx context.Context, req kmsg.Request) []kgo.ResponseShard {
	f.requests = append(f.requests, req)
	resp, err := f.handle(req)
	return []kgo.ResponseShard{{Resp: resp, Err: err}}
}

func fakeConn(t *testing.T, handle func(req kmsg.Request) (kmsg.Response, error)) (*Conn, *fakeRequestor) {
	t.Helper()
	fake := &fakeRequestor{handle: handle}
	return NewConn(fake), fake
}

// metadataResponse builds a metadata response advertising the given topics,
// each healthy with one partition.
func metadataResponse(topics ...string) *kmsg.MetadataResponse {
	resp := kmsg.NewPtrMetadataResponse()
	for _, name := range topics {
		topic := kmsg.NewMetadataResponseTopic()
		topic.Topic = kmsg.StringPtr(name)
		partition := kmsg.NewMetadataResponseTopicPartition()
		partition.Partition = 0
		partition.Leader = 1
		partition.Replicas = []int32{1, 2}
		partition.ISR = []int32{1, 2}
		topic.Partitions = append(topic.Partitions, partition)
		resp.Topics = append(resp.Topics, topic)
	}
	return resp
}

func countRequests[T kmsg.Request](requests []kmsg.Request) int {
	n := 0
	for _, req := range requests {
		if _, ok := req.(T); ok {
			n++
		}
	}
	return n
}
