package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"profile-backend/internal/bootstrap"
	"profile-backend/internal/queue"
	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/metrics"
	"profile-backend/internal/shared/telemetry"
	"profile-backend/internal/workerproc"
)

const (
	receiveBatch       = 10
	receiveWaitSeconds = 20
)

type processor interface {
	Process(ctx context.Context, msg queue.Message) error
}

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.QueueURL) == "" {
		telemetry.Error("worker.config_invalid", map[string]any{"error": "QUEUE_URL is required"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
	if err != nil {
		telemetry.Error("worker.queue_init_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	consumer.VisibilityTimeout = int32(cfg.QueueVisibility)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	telemetry.Info("worker.started", map[string]any{
		"concurrency":        cfg.WorkerConcurrency,
		"visibility_seconds": cfg.QueueVisibility,
	})
	run(ctx, consumer, app.Processor, cfg.WorkerConcurrency, time.Duration(cfg.ShutdownTimeout)*time.Second)
	telemetry.Info("worker.stopped", nil)
}

// run polls until ctx is cancelled, then waits up to shutdown for in-flight
// jobs. Jobs run on a context detached from the signal so a merge is never
// cut short.
func run(ctx context.Context, consumer queue.Consumer, proc processor, concurrency int, shutdown time.Duration) {
	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup
	jobCtx := context.WithoutCancel(ctx)

poll:
	for {
		if ctx.Err() != nil {
			break
		}
		deliveries, err := consumer.Receive(ctx, receiveBatch, receiveWaitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, d := range deliveries {
			select {
			case <-ctx.Done():
				break poll
			case sem <- struct{}{}:
			}
			metrics.IncWorkerJob("received")
			wg.Add(1)
			go func(d queue.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(jobCtx, consumer, proc, d)
			}(d)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdown):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout_s": int(shutdown.Seconds())})
	}
}

func handleMessage(ctx context.Context, consumer queue.Consumer, proc processor, d queue.Delivery) {
	msg, meta, err := workerproc.ParseMessage(d.Body)
	if err != nil {
		fields := baseFields(d, msg)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.ingest.invalid_message", fields)
		if deleteMessage(ctx, consumer, d, msg) {
			metrics.IncWorkerJob("deleted_unrecoverable")
		}
		return
	}

	received := baseFields(d, msg)
	received["queue_age_ms"] = msg.Age(time.Now()).Milliseconds()
	telemetry.Info("worker.ingest.received", received)

	start := time.Now()
	if err := proc.Process(ctx, msg); err != nil {
		fields := baseFields(d, msg)
		fields["error"] = err.Error()
		fields["duration_ms"] = time.Since(start).Milliseconds()

		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) {
			fields["code"] = procErr.Code
			fields["unrecoverable"] = procErr.Unrecoverable
		}
		telemetry.Error("worker.ingest.failed", fields)
		metrics.IncWorkerJob("failed")

		if procErr.Unrecoverable && deleteMessage(ctx, consumer, d, msg) {
			metrics.IncWorkerJob("deleted_unrecoverable")
		}
		return
	}

	if deleteMessage(ctx, consumer, d, msg) {
		fields := baseFields(d, msg)
		fields["duration_ms"] = time.Since(start).Milliseconds()
		telemetry.Info("worker.ingest.completed", fields)
		metrics.IncWorkerJob("completed")
	}
}

func deleteMessage(ctx context.Context, consumer queue.Consumer, d queue.Delivery, msg queue.Message) bool {
	if strings.TrimSpace(d.Handle) == "" {
		fields := baseFields(d, msg)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.ingest.delete_failed", fields)
		return false
	}
	if err := consumer.Delete(ctx, d.Handle); err != nil {
		fields := baseFields(d, msg)
		fields["error"] = err.Error()
		telemetry.Error("worker.ingest.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(d queue.Delivery, msg queue.Message) map[string]any {
	fields := map[string]any{
		"message_id":    d.ID,
		"receive_count": d.ReceiveCount,
	}
	if msg.DocumentID != "" {
		fields["document_id"] = msg.DocumentID
	}
	if msg.ProfileID != "" {
		fields["profile_id"] = msg.ProfileID
	}
	if strings.TrimSpace(msg.RequestID) != "" {
		fields["request_id"] = msg.RequestID
	}
	return fields
}
