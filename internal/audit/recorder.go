package audit

import (
	"context"
	"log/slog"
	"time"

	"verigate/pkg/requestcontext"
)

// Sink mirrors audit records to an external system, such as a Kafka topic.
// Mirroring is best-effort and never blocks the trail's primary store.
type Sink interface {
	Publish(ctx context.Context, record Record) error
	Close()
}

// Recorder accepts audit records from domain services and persists them
// asynchronously. Recording is best-effort: a full inbox or a failing store
// is logged and dropped, it never fails the business operation that emitted
// the record. A single worker drains the inbox, so records for the same
// target are persisted in emission order.
type Recorder struct {
	store  Store
	sink   Sink
	logger *slog.Logger
	inbox  chan Record
	done   chan struct{}
}

// NewRecorder starts the recorder's worker. sink may be nil.
func NewRecorder(store Store, sink Sink, logger *slog.Logger) *Recorder {
	r := &Recorder{
		store:  store,
		sink:   sink,
		logger: logger,
		inbox:  make(chan Record, 256),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues one audit record, stamping the timestamp and request
// metadata from ctx. It never blocks: when the inbox is full the record is
// dropped and the loss is logged.
func (r *Recorder) Record(ctx context.Context, record Record) {
	if record.Timestamp.IsZero() {
		record.Timestamp = requestcontext.Now(ctx)
	}
	if record.RequestID == "" {
		record.RequestID = requestcontext.RequestID(ctx)
	}
	if record.IP == "" {
		record.IP = requestcontext.ClientIP(ctx)
	}
	if record.UserAgent == "" {
		record.UserAgent = requestcontext.UserAgent(ctx)
	}

	select {
	case r.inbox <- record:
	default:
		r.logger.ErrorContext(ctx, "audit inbox full, record dropped",
			"action", string(record.Action),
			"target_id", record.TargetID)
	}
}

// Close stops accepting records, drains the inbox, and waits for the worker.
func (r *Recorder) Close() {
	close(r.inbox)
	<-r.done
	if r.sink != nil {
		r.sink.Close()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for record := range r.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Append(ctx, record); err != nil {
			r.logger.Error("audit record persistence failed",
				"action", string(record.Action),
				"target_id", record.TargetID,
				"error", err)
		}
		if r.sink != nil {
			if err := r.sink.Publish(ctx, record); err != nil {
				r.logger.Error("audit record mirror failed",
					"action", string(record.Action),
					"error", err)
			}
		}
		cancel()
	}
}
