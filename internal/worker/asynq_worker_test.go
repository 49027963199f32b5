package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleImportLogRecordRejectsBadPayload(t *testing.T) {
	consumer := NewConsumer(nil)
	err := consumer.handleImportLogRecord(context.Background(), asynq.NewTask(queue.TaskImportLogRecord, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("want SkipRetry for undecodable payload got %v", err)
	}
}

func TestHandleImportLogRecordSkipsIncompletePayload(t *testing.T) {
	consumer := NewConsumer(nil)
	body, _ := json.Marshal(queue.ImportLogRecordPayload{SessionID: "s1", Status: constants.ImportLogStatusCompleted})
	if err := consumer.handleImportLogRecord(context.Background(), asynq.NewTask(queue.TaskImportLogRecord, body)); err != nil {
		t.Fatalf("want skip without error got %v", err)
	}
}

type countingCleaner struct {
	mu    sync.Mutex
	calls int
	days  int
	err   error
}

func (c *countingCleaner) CleanupImportLogs(retentionDays int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.days = retentionDays
	return 1, c.err
}

func (c *countingCleaner) snapshot() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.days
}

func TestRunImportLogRetention(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("db busy")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunImportLogRetention(ctx, cleaner, 90, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls, _ := cleaner.snapshot()
		if calls >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	calls, days := cleaner.snapshot()
	if calls < 3 || days != 90 {
		t.Fatalf("want at least 3 cleanups with 90 days got calls=%d days=%d", calls, days)
	}
}

func TestRunImportLogRetentionDisabled(t *testing.T) {
	cleaner := &countingCleaner{}
	RunImportLogRetention(context.Background(), cleaner, 0, time.Millisecond)
	if calls, _ := cleaner.snapshot(); calls != 0 {
		t.Fatalf("want no cleanup when retention disabled got %d", calls)
	}
}
