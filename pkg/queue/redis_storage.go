package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStorage implements all queue repository interfaces on Redis.
//
// Every queue owns five sorted sets: waiting (score = priority rank),
// delayed (score = due time), active (score = lock deadline), completed and
// failed (score = settle time). A hash keeps each task's waiting rank so due
// and expired tasks can be moved back without decoding them, and a second
// hash records which worker holds each active task. Task bodies live in
// separate JSON string keys.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// RedisStorageOption configures RedisStorage
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix sets the namespace for every key the storage writes
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStorage creates a Redis backed queue storage
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}
	s := &RedisStorage{client: client, prefix: "queue"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// rankSpan separates priority bands in the waiting score. Millisecond
// timestamps stay below it until the year 2286.
const rankSpan = 1e13

func waitingRank(p Priority, availableAt time.Time) float64 {
	return float64(p)*rankSpan + float64(availableAt.UnixMilli())
}

func millis(t time.Time) float64 { return float64(t.UnixMilli()) }

func (s *RedisStorage) taskKey(id uuid.UUID) string { return s.prefix + ":task:" + id.String() }
func (s *RedisStorage) setKey(queue, bucket string) string {
	return s.prefix + ":" + queue + ":" + bucket
}

// claimScript promotes due delayed tasks and tasks whose lock expired into
// waiting, then moves the best waiting task into active and records the
// claiming worker in the locks hash.
//
// KEYS: waiting, delayed, active, ranks, locks. ARGV: now ms, lock deadline
// ms, worker id.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
for _, src in ipairs({KEYS[2], KEYS[3]}) do
	local ids = redis.call('ZRANGEBYSCORE', src, '-inf', now, 'LIMIT', 0, 100)
	for _, id in ipairs(ids) do
		redis.call('ZREM', src, id)
		redis.call('HDEL', KEYS[5], id)
		local rank = redis.call('HGET', KEYS[4], id)
		if rank then
			redis.call('ZADD', KEYS[1], rank, id)
		end
	end
end
local head = redis.call('ZRANGE', KEYS[1], 0, 0)
if #head == 0 then
	return false
end
redis.call('ZREM', KEYS[1], head[1])
redis.call('ZADD', KEYS[3], ARGV[2], head[1])
redis.call('HSET', KEYS[5], head[1], ARGV[3])
return head[1]
`)

// settleScript writes a task body and moves the task out of active, but only
// while the worker still holds the lock. Returns 0 when it does not.
//
// KEYS: task, active, locks, ranks, target set. ARGV: task id, worker id,
// body, target score, rank ("" drops the rank).
var settleScript = redis.NewScript(`
if redis.call('HGET', KEYS[3], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[3])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
if ARGV[5] == '' then
	redis.call('HDEL', KEYS[4], ARGV[1])
else
	redis.call('HSET', KEYS[4], ARGV[1], ARGV[5])
end
redis.call('ZADD', KEYS[5], ARGV[4], ARGV[1])
return 1
`)

// extendScript moves the lock deadline forward for the lock holder.
//
// KEYS: task, active, locks. ARGV: task id, worker id, body, deadline ms.
var extendScript = redis.NewScript(`
if redis.call('HGET', KEYS[3], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[3])
redis.call('ZADD', KEYS[2], 'XX', ARGV[4], ARGV[1])
return 1
`)

// CreateTask implements EnqueuerRepository
func (s *RedisStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	body, err := json.Marshal(task)
	if err != nil {
		return errors.Join(ErrPayloadMarshal, err)
	}

	ok, err := s.client.SetNX(ctx, s.taskKey(task.ID), body, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	rank := waitingRank(task.Priority, task.ScheduledAt)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.setKey(task.Queue, "ranks"), task.ID.String(), rank)
		if task.ScheduledAt.After(time.Now()) {
			pipe.ZAdd(ctx, s.setKey(task.Queue, "delayed"), redis.Z{Score: millis(task.ScheduledAt), Member: task.ID.String()})
		} else {
			pipe.ZAdd(ctx, s.setKey(task.Queue, "waiting"), redis.Z{Score: rank, Member: task.ID.String()})
		}
		return nil
	})
	return err
}

// ClaimTask implements WorkerRepository
func (s *RedisStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	lockUntil := now.Add(lockDuration)

	for _, q := range queues {
		keys := []string{
			s.setKey(q, "waiting"),
			s.setKey(q, "delayed"),
			s.setKey(q, "active"),
			s.setKey(q, "ranks"),
			s.setKey(q, "locks"),
		}
		raw, err := claimScript.Run(ctx, s.client, keys, now.UnixMilli(), lockUntil.UnixMilli(), workerID.String()).Text()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed task id %q in queue %q: %w", raw, q, err)
		}

		task, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		task.Status = TaskStatusProcessing
		task.LockedUntil = &lockUntil
		task.LockedBy = &workerID
		if err := s.save(ctx, s.client, task); err != nil {
			return nil, err
		}
		return task, nil
	}

	return nil, ErrNoTaskToClaim
}

// CompleteTask implements WorkerRepository
func (s *RedisStorage) CompleteTask(ctx context.Context, workerID, taskID uuid.UUID) error {
	task, err := s.loadOwned(ctx, workerID, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil

	return s.settle(ctx, workerID, task, "completed", millis(now), "")
}

// FailTask implements WorkerRepository
func (s *RedisStorage) FailTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error {
	return s.fail(ctx, workerID, taskID, errorMsg, false)
}

// DiscardTask implements WorkerRepository
func (s *RedisStorage) DiscardTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error {
	return s.fail(ctx, workerID, taskID, errorMsg, true)
}

func (s *RedisStorage) fail(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string, terminal bool) error {
	task, err := s.loadOwned(ctx, workerID, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.AttemptsMade++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if terminal || task.Exhausted() {
		task.Status = TaskStatusFailed
		task.ProcessedAt = &now
		return s.settle(ctx, workerID, task, "failed", millis(now), "")
	}

	task.Status = TaskStatusPending
	task.ScheduledAt = now.Add(task.RetryDelay())
	rank := strconv.FormatFloat(waitingRank(task.Priority, task.ScheduledAt), 'f', -1, 64)
	return s.settle(ctx, workerID, task, "delayed", millis(task.ScheduledAt), rank)
}

// settle moves a task out of active into bucket if workerID still holds it.
func (s *RedisStorage) settle(ctx context.Context, workerID uuid.UUID, task *Task, bucket string, score float64, rank string) error {
	body, err := json.Marshal(task)
	if err != nil {
		return errors.Join(ErrPayloadMarshal, err)
	}

	keys := []string{
		s.taskKey(task.ID),
		s.setKey(task.Queue, "active"),
		s.setKey(task.Queue, "locks"),
		s.setKey(task.Queue, "ranks"),
		s.setKey(task.Queue, bucket),
	}
	ok, err := settleScript.Run(ctx, s.client, keys, task.ID.String(), workerID.String(), body, score, rank).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s", ErrTaskLockLost, task.ID)
	}
	return nil
}

// ExtendLock implements WorkerRepository
func (s *RedisStorage) ExtendLock(ctx context.Context, workerID, taskID uuid.UUID, duration time.Duration) error {
	task, err := s.loadOwned(ctx, workerID, taskID)
	if err != nil {
		return err
	}

	lockUntil := time.Now().Add(duration)
	task.LockedUntil = &lockUntil
	body, err := json.Marshal(task)
	if err != nil {
		return errors.Join(ErrPayloadMarshal, err)
	}

	keys := []string{s.taskKey(task.ID), s.setKey(task.Queue, "active"), s.setKey(task.Queue, "locks")}
	ok, err := extendScript.Run(ctx, s.client, keys, task.ID.String(), workerID.String(), body, millis(lockUntil)).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s", ErrTaskLockLost, task.ID)
	}
	return nil
}

// GetTask returns the stored task with the given id.
func (s *RedisStorage) GetTask(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	return s.load(ctx, taskID)
}

// Stats implements StatsRepository
func (s *RedisStorage) Stats(ctx context.Context, queue string) (Stats, error) {
	stats := Stats{Queue: queue}

	pipe := s.client.Pipeline()
	waiting := pipe.ZCard(ctx, s.setKey(queue, "waiting"))
	delayed := pipe.ZCard(ctx, s.setKey(queue, "delayed"))
	active := pipe.ZCard(ctx, s.setKey(queue, "active"))
	completed := pipe.ZCard(ctx, s.setKey(queue, "completed"))
	failed := pipe.ZCard(ctx, s.setKey(queue, "failed"))
	recent := pipe.ZRevRange(ctx, s.setKey(queue, "failed"), 0, recentFailedLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return stats, err
	}

	stats.Waiting = waiting.Val()
	stats.Delayed = delayed.Val()
	stats.Active = active.Val()
	stats.Completed = completed.Val()
	stats.Failed = failed.Val()

	ids := recent.Val()
	if len(ids) == 0 {
		return stats, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.prefix+":task:"+id)
	}
	bodies, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return stats, err
	}
	for _, b := range bodies {
		str, ok := b.(string)
		if !ok {
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			continue
		}
		stats.RecentFailed = append(stats.RecentFailed, failedEntry(&t))
	}

	return stats, nil
}

// PurgeTasks implements CleanerRepository
func (s *RedisStorage) PurgeTasks(ctx context.Context, queue string, status TaskStatus, before time.Time) (int64, error) {
	var bucket string
	switch status {
	case TaskStatusCompleted:
		bucket = "completed"
	case TaskStatusFailed:
		bucket = "failed"
	default:
		return 0, fmt.Errorf("cannot purge tasks in %q status", status)
	}

	key := s.setKey(queue, bucket)
	cutoff := strconv.FormatInt(before.UnixMilli(), 10)
	ids, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: "(" + cutoff}).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	members := make([]any, 0, len(ids))
	taskKeys := make([]string, 0, len(ids))
	for _, id := range ids {
		members = append(members, id)
		taskKeys = append(taskKeys, s.prefix+":task:"+id)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, key, members...)
		pipe.Del(ctx, taskKeys...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// load reads a task body. The body of a task whose lock expired still says
// processing until another worker claims it; the locks hash is the source of
// truth, so such a task is reported as pending.
func (s *RedisStorage) load(ctx context.Context, id uuid.UUID) (*Task, error) {
	body, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	if task.Status != TaskStatusProcessing {
		return &task, nil
	}

	holder, err := s.client.HGet(ctx, s.setKey(task.Queue, "locks"), id.String()).Result()
	switch {
	case errors.Is(err, redis.Nil):
		task.Status = TaskStatusPending
		task.LockedBy = nil
		task.LockedUntil = nil
	case err != nil:
		return nil, err
	default:
		if w, err := uuid.Parse(holder); err == nil {
			task.LockedBy = &w
		}
	}
	return &task, nil
}

// loadOwned loads a task that workerID is processing.
func (s *RedisStorage) loadOwned(ctx context.Context, workerID, id uuid.UUID) (*Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskStatusProcessing {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotProcessing, id)
	}
	if task.LockedBy == nil || *task.LockedBy != workerID {
		return nil, fmt.Errorf("%w: %s", ErrTaskLockLost, id)
	}
	return task, nil
}

func (s *RedisStorage) save(ctx context.Context, c redis.Cmdable, task *Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return errors.Join(ErrPayloadMarshal, err)
	}
	return c.Set(ctx, s.taskKey(task.ID), body, 0).Err()
}
