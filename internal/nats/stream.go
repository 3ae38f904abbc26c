package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/docbot/docbot/internal/model"
)

const (
	// StreamName is the name of the job events stream.
	StreamName = "DOCBOT_JOBS"

	// SubjectPrefix is the prefix for all job subjects.
	SubjectPrefix = "docbot"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the job stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Finished document conversion and merge jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// token makes s safe for use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

// JobSubject returns the subject for a job event.
func JobSubject(platform, chatID string, kind model.JobKind, status model.JobStatus) string {
	return fmt.Sprintf("%s.%s.%s.job.%s.%s", SubjectPrefix, token(platform), token(chatID), kind, status)
}

// JobFilter returns the filter subject for jobs, optionally narrowed to one chat.
func JobFilter(platform, chatID string) string {
	if platform == "" {
		return fmt.Sprintf("%s.>", SubjectPrefix)
	}
	if chatID == "" {
		return fmt.Sprintf("%s.%s.>", SubjectPrefix, token(platform))
	}
	return fmt.Sprintf("%s.%s.%s.job.>", SubjectPrefix, token(platform), token(chatID))
}

// PublishJob publishes a job event to JetStream.
func (m *StreamManager) PublishJob(ctx context.Context, event *model.JobEvent) (uint64, error) {
	subject := JobSubject(event.Platform, event.ChatID, event.Kind, event.Status)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish job event: %w", err)
	}

	return ack.Sequence, nil
}

// GetJobs retrieves job events matching filter starting after a sequence.
func (m *StreamManager) GetJobs(ctx context.Context, filter string, afterSequence uint64, limit int) ([]model.JobEvent, uint64, bool, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: filter,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}

	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		_ = js.DeleteConsumer(context.Background(), StreamName, consumer.CachedInfo().Name)
	}()

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch job events: %w", err)
	}

	var (
		jobs         []model.JobEvent
		lastSequence uint64
	)
	for msg := range batch.Messages() {
		var job model.JobEvent
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			continue
		}

		if meta, err := msg.Metadata(); err == nil {
			job.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		jobs = append(jobs, job)
	}

	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, 0, false, fmt.Errorf("batch error: %w", batch.Error())
	}

	return jobs, lastSequence, len(jobs) == limit, nil
}
