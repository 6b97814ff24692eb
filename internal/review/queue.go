// Package review keeps the supervisor review queue for jobs whose gates were
// skipped too often.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKey = "gates:review"
	detailsKey = "gates:review:details"
)

// Entry is a job waiting for supervisor review.
type Entry struct {
	JobID          uuid.UUID `json:"jobId"`
	ExceptionCount int       `json:"exceptionCount"`
	Threshold      int       `json:"threshold"`
	Stages         []string  `json:"stages"`
	FlaggedAt      time.Time `json:"flaggedAt"`
	NotifiedAt     time.Time `json:"notifiedAt"`
}

// Queue stores entries in a sorted set scored by last notification time,
// with the entry bodies in a hash keyed by job id.
type Queue struct {
	rdb redis.Cmdable
}

func NewQueue(rdb redis.Cmdable) *Queue {
	return &Queue{rdb: rdb}
}

// Flag adds or refreshes an entry and reports whether the job was newly
// queued. Refreshing keeps the original FlaggedAt and NotifiedAt.
func (q *Queue) Flag(ctx context.Context, entry Entry, now time.Time) (bool, error) {
	member := entry.JobID.String()
	added, err := q.rdb.ZAddNX(ctx, pendingKey, redis.Z{Score: score(now), Member: member}).Result()
	if err != nil {
		return false, fmt.Errorf("flag job %s: %w", member, err)
	}

	if added == 1 {
		entry.FlaggedAt = now
		entry.NotifiedAt = now
	} else {
		existing, err := q.get(ctx, member)
		if err != nil {
			return false, err
		}
		if existing != nil {
			entry.FlaggedAt = existing.FlaggedAt
			entry.NotifiedAt = existing.NotifiedAt
		} else {
			entry.FlaggedAt = now
			entry.NotifiedAt = now
		}
	}

	if err := q.put(ctx, entry); err != nil {
		return false, err
	}
	return added == 1, nil
}

// List returns all queued entries, oldest flag first.
func (q *Queue) List(ctx context.Context) ([]Entry, error) {
	members, err := q.rdb.ZRange(ctx, pendingKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	entries, err := q.load(ctx, members)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FlaggedAt.Before(entries[j].FlaggedAt)
	})
	return entries, nil
}

// Due returns entries last notified at or before the given time.
func (q *Queue) Due(ctx context.Context, before time.Time) ([]Entry, error) {
	members, err := q.rdb.ZRangeByScore(ctx, pendingKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("due review entries: %w", err)
	}
	return q.load(ctx, members)
}

// Touch records a notification for a queued job. Jobs that were
// acknowledged in the meantime are left alone.
func (q *Queue) Touch(ctx context.Context, jobID uuid.UUID, at time.Time) error {
	member := jobID.String()
	if err := q.rdb.ZAddXX(ctx, pendingKey, redis.Z{Score: score(at), Member: member}).Err(); err != nil {
		return fmt.Errorf("touch job %s: %w", member, err)
	}
	entry, err := q.get(ctx, member)
	if err != nil || entry == nil {
		return err
	}
	entry.NotifiedAt = at
	return q.put(ctx, *entry)
}

// Ack removes a job from the queue and reports whether it was queued.
func (q *Queue) Ack(ctx context.Context, jobID uuid.UUID) (bool, error) {
	member := jobID.String()
	var removed *redis.IntCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, pendingKey, member)
		pipe.HDel(ctx, detailsKey, member)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ack job %s: %w", member, err)
	}
	return removed.Val() > 0, nil
}

func (q *Queue) get(ctx context.Context, member string) (*Entry, error) {
	raw, err := q.rdb.HGet(ctx, detailsKey, member).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load review entry %s: %w", member, err)
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode review entry %s: %w", member, err)
	}
	return &entry, nil
}

func (q *Queue) put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := q.rdb.HSet(ctx, detailsKey, entry.JobID.String(), data).Err(); err != nil {
		return fmt.Errorf("store review entry %s: %w", entry.JobID, err)
	}
	return nil
}

func (q *Queue) load(ctx context.Context, members []string) ([]Entry, error) {
	if len(members) == 0 {
		return []Entry{}, nil
	}
	values, err := q.rdb.HMGet(ctx, detailsKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("load review entries: %w", err)
	}
	entries := make([]Entry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Sorted set member without a body; skip it.
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode review entry %s: %w", members[i], err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func score(t time.Time) float64 {
	return float64(t.Unix())
}
