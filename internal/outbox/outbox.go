// Package outbox describes the durable remote-mirroring jobs the mutation
// engine enqueues. A job records an optimistic local mutation that an
// external work scheduler must eventually replay against the server. The
// engine never waits for delivery; retry and backoff live in the scheduler.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxBatchIDs is the scheduler's maximum ids per job; larger batches are
// chunked before enqueueing.
const MaxBatchIDs = 100

type Kind string

const (
	KindMarkRead   Kind = "mark_read"
	KindMarkUnread Kind = "mark_unread"
	KindStar       Kind = "star"
	KindUnstar     Kind = "unstar"
	KindLabel      Kind = "label"
	KindUnlabel    Kind = "unlabel"
	KindMove       Kind = "move"
	KindDelete     Kind = "delete"
)

// Params carries the operation-specific arguments of a job.
type Params struct {
	LabelID  string `json:"label_id,omitempty"`
	FolderID string `json:"folder_id,omitempty"`
}

// Job is one durable remote-mirroring request.
type Job struct {
	ID        string
	UserID    string
	Kind      Kind
	IDs       []string
	Params    Params
	CreatedAt time.Time
}

// NewJob builds a job with a fresh id.
func NewJob(userID string, kind Kind, ids []string, params Params) Job {
	return Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		IDs:       ids,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
}

// Enqueuer hands jobs to the durable work scheduler. Implementations must
// make the job durable before returning; delivery is at-least-once.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Chunk splits ids into slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	return append(chunks, ids)
}
