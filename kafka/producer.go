package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shortsfactory/types"

	"github.com/IBM/sarama"
)

// JobResult is published once per job that reaches a terminal state.
type JobResult struct {
	JobID       string         `json:"job_id"`
	Topic       string         `json:"topic"`
	State       types.JobState `json:"state"`
	FailedStage types.Stage    `json:"failed_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	VideoPath   string         `json:"video_path,omitempty"`
	Duration    float64        `json:"duration,omitempty"`
	VideoID     string         `json:"video_id,omitempty"`
	StorageURL  string         `json:"storage_url,omitempty"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// ResultFromStatus builds the result message for a terminal status.
func ResultFromStatus(st types.JobStatus) JobResult {
	r := JobResult{
		JobID:       st.ID,
		Topic:       st.Job.Topic,
		State:       st.State,
		FailedStage: st.FailedStage,
		Error:       st.Error,
		FinishedAt:  st.UpdatedAt,
	}
	if a := st.Artifact; a != nil {
		r.VideoPath = a.Path
		r.Duration = a.Duration
		r.VideoID = a.VideoID
		r.StorageURL = a.StorageURL
	}
	return r
}

// Producer writes job results keyed by job id.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer connects a synchronous producer to brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerFrom(p, topic), nil
}

// NewProducerFrom wraps an existing sarama producer.
func NewProducerFrom(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: p, topic: topic}
}

// Notify publishes the result for st. It implements jobs.Notifier.
func (p *Producer) Notify(ctx context.Context, st types.JobStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ResultFromStatus(st))
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(st.ID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send job result: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
