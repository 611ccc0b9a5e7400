package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"clinicbook/internal/database"
	"clinicbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	err         error
	upsertCalls int
	last        *models.Booking
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, b *models.Booking) error {
	f.upsertCalls++
	f.last = b
	return f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestWorker(t *testing.T, db *database.DB, sheets SheetsClient, rdb *redis.Client, retry RetryPolicy) *SheetsWorker {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	return NewSheetsWorker(db, sheets, rdb, retry, &logger)
}

func testBooking(id int64) *models.Booking {
	date, _ := time.Parse(models.DateLayout, "2024-06-10")
	return &models.Booking{
		ID:          id,
		Reference:   "ref-1",
		PatientName: "Jane Doe",
		Age:         34,
		Phone:       "+201001234567",
		Pain:        "toothache",
		Date:        date,
		Slot:        "3:30 PM",
		Status:      models.StatusConfirmed,
	}
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (string, int, sql.NullTime) {
	t.Helper()
	var (
		status     string
		retryCount int
		nextRetry  sql.NullTime
	)
	row := db.QueryRowContext(context.Background(),
		`SELECT status, retry_count, next_retry_at FROM sync_tasks WHERE id = ?`, id)
	require.NoError(t, row.Scan(&status, &retryCount, &nextRetry))
	return status, retryCount, nextRetry
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	w := newTestWorker(t, db, sheets, nil, RetryPolicy{})

	ctx := context.Background()
	require.NoError(t, w.EnqueueUpsert(ctx, testBooking(1)))

	task, ok := w.tryLocalQueue()
	require.True(t, ok, "expected task in local queue")
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "completed", status)
	assert.Equal(t, 0, retryCount)
	assert.False(t, nextRetry.Valid)
	assert.Equal(t, 1, sheets.upsertCalls)
	assert.Equal(t, "Jane Doe", sheets.last.PatientName)
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	w := newTestWorker(t, db, sheets, nil, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second})

	ctx := context.Background()
	require.NoError(t, w.EnqueueUpsert(ctx, testBooking(2)))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "retry", status)
	assert.Equal(t, 1, retryCount)
	require.True(t, nextRetry.Valid)
	assert.True(t, nextRetry.Time.After(time.Now()))
}

func TestProcessTaskFailsAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	w := newTestWorker(t, db, sheets, nil, RetryPolicy{MaxAttempts: 1})

	ctx := context.Background()
	require.NoError(t, w.EnqueueUpsert(ctx, testBooking(3)))

	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "failed", status)
}

func TestEnqueueUpsertRequiresBookingID(t *testing.T) {
	db := newTestDB(t)
	w := newTestWorker(t, db, &fakeSheets{}, nil, RetryPolicy{})

	assert.Error(t, w.EnqueueUpsert(context.Background(), nil))
	assert.Error(t, w.EnqueueUpsert(context.Background(), &models.Booking{}))
}

func TestEnqueueUpsertPrefersRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db := newTestDB(t)
	w := newTestWorker(t, db, &fakeSheets{}, rdb, RetryPolicy{})

	ctx := context.Background()
	require.NoError(t, w.EnqueueUpsert(ctx, testBooking(4)))

	_, ok := w.tryLocalQueue()
	assert.False(t, ok, "task should have gone to redis, not the memory queue")

	raw, err := rdb.RPop(ctx, w.redisQueueKey).Result()
	require.NoError(t, err)

	var task models.SyncTask
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, TaskUpsert, task.TaskType)
	assert.Equal(t, int64(4), task.BookingID)
}

func TestDeadLetterOnPermanentFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	w := newTestWorker(t, db, sheets, rdb, RetryPolicy{MaxAttempts: 1})

	ctx := context.Background()
	require.NoError(t, w.EnqueueUpsert(ctx, testBooking(5)))

	task, ok := w.tryRedis(ctx)
	require.True(t, ok)
	w.processTask(ctx, &task)

	n, err := rdb.LLen(ctx, w.deadLetterKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestProcessTaskBadPayload(t *testing.T) {
	db := newTestDB(t)
	w := newTestWorker(t, db, &fakeSheets{}, nil, RetryPolicy{})

	ctx := context.Background()
	task := models.SyncTask{TaskType: TaskUpsert, BookingID: 6, Payload: "not json", Status: "pending", CreatedAt: time.Now()}
	require.NoError(t, db.CreateSyncTask(ctx, &task))

	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "failed", status)
}

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, Factor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 5*time.Second, policy.Delay(5), "delay is capped at MaxDelay")
	assert.Equal(t, time.Second, policy.Delay(0), "attempts below 1 are clamped")
}
