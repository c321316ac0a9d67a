// Package worker runs background jobs over finalized audio assets.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAudioProbe = "audio:probe"
	QueueProbe     = "probe"
)

type ProbePayload struct {
	PontoAudioID string `json:"ponto_audio_id"`
}

func NewProbeTask(assetID string) (*asynq.Task, error) {
	data, err := json.Marshal(ProbePayload{PontoAudioID: assetID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAudioProbe, data), nil
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules probe jobs. One job per asset: a duplicate enqueue is
// a no-op.
type Enqueuer struct {
	client taskEnqueuer
}

func NewEnqueuer(client taskEnqueuer) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueProbe(ctx context.Context, assetID string) error {
	task, err := NewProbeTask(assetID)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueProbe),
		asynq.TaskID("probe:"+assetID),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue probe: %w", err)
	}
	return nil
}
