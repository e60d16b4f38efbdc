package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// TopicTaskEvents carries one message per task status change, keyed by
// task id.
const TopicTaskEvents = "tasks.events"

// EventPublisher publishes task transitions. It satisfies the tracker's
// recorder interface.
type EventPublisher struct {
	producer Producer
	topic    string
}

func NewEventPublisher(p Producer) *EventPublisher {
	return &EventPublisher{producer: p, topic: TopicTaskEvents}
}

func (e *EventPublisher) RecordTransition(ctx context.Context, tr *domain.Transition) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode transition of task %s: %w", tr.TaskID, err)
	}
	return e.producer.Publish(ctx, e.topic, tr.TaskID, raw)
}

// DecodeTransition reads a task event. Malformed events wrap ErrSkip.
func DecodeTransition(msg Message) (*domain.Transition, error) {
	var tr domain.Transition
	if err := json.Unmarshal(msg.Value, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode task event at offset %d: %v", ErrSkip, msg.Offset, err)
	}
	if tr.TaskID == "" || tr.To == "" {
		return nil, fmt.Errorf("%w: task event at offset %d has no task id or status", ErrSkip, msg.Offset)
	}
	return &tr, nil
}
