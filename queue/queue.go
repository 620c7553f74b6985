// Package queue is the durable job queue behind the framework's async
// helper. Jobs are persisted in an embedded BadgerDB store; a worker
// process dequeues them in priority order (lower number first) and failed
// jobs are moved to a failed area for inspection and retry, never dropped.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	pendingPrefix = "job:"
	failedPrefix  = "failed:"
)

// MaxPriority bounds job priorities so the fixed-width priority field in
// pending keys keeps its lexical scan order.
const MaxPriority = 99999

// Job is one durable queue record.
type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Payload    []byte    `json:"payload,omitempty"`
	Priority   int       `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
}

// Queue is a priority job queue over a BadgerDB store. Safe for concurrent
// use; multiple workers may share one Queue.
type Queue struct {
	db *badger.DB
}

// Open opens (or creates) a queue store in dir.
func Open(dir string) (*Queue, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening queue store")
	}
	return &Queue{db: db}, nil
}

// OpenInMemory opens a queue store that lives only in memory, for tests.
func OpenInMemory() (*Queue, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory queue store")
	}
	return &Queue{db: db}, nil
}

// Close closes the underlying store.
func (q *Queue) Close() error {
	return q.db.Close()
}

// pendingKey orders jobs by priority, then enqueue time, then id, so a
// forward key scan is exactly dequeue order.
func pendingKey(priority int, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%05d:%020d:%s", pendingPrefix, priority, at.UnixNano(), id))
}

func failedKey(id string) []byte {
	return []byte(failedPrefix + id)
}

// Enqueue writes a durable job record and returns its id. Lower priority
// numbers are dequeued first; equal priorities dequeue in enqueue order.
// Priorities outside [0, MaxPriority] are rejected.
func (q *Queue) Enqueue(name string, payload []byte, priority int) (string, error) {
	if name == "" {
		return "", errors.New("job name is required")
	}
	if priority < 0 || priority > MaxPriority {
		return "", errors.Errorf("priority %d out of range [0, %d]", priority, MaxPriority)
	}

	job := Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		Priority:   priority,
		EnqueuedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(job)
	if err != nil {
		return "", errors.Wrap(err, "serializing job")
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(job.Priority, job.EnqueuedAt, job.ID), value)
	})
	if err != nil {
		return "", errors.Wrap(err, "persisting job")
	}
	return job.ID, nil
}

// Dequeue removes and returns the highest-priority pending job, or nil
// when the queue is empty. Removal and read happen in one transaction, so
// two workers never receive the same job.
func (q *Queue) Dequeue() (*Job, error) {
	var job *Job

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pendingPrefix)
		it.Seek(prefix)
		if !it.ValidForPrefix(prefix) {
			return nil
		}

		item := it.Item()
		var j Job
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &j)
		}); err != nil {
			return err
		}

		if err := txn.Delete(item.KeyCopy(nil)); err != nil {
			return err
		}
		job = &j
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "dequeuing job")
	}
	return job, nil
}

// Fail records a job in the failed area with the error that stopped it.
func (q *Queue) Fail(job *Job, cause error) error {
	job.Attempts++
	if cause != nil {
		job.LastError = cause.Error()
	}

	value, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "serializing failed job")
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(failedKey(job.ID), value)
	})
	return errors.Wrap(err, "persisting failed job")
}

// Failed lists the jobs in the failed area.
func (q *Queue) Failed() ([]Job, error) {
	var jobs []Job

	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(failedPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var j Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return err
			}
			jobs = append(jobs, j)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing failed jobs")
	}
	return jobs, nil
}

// Retry moves a failed job back onto the pending queue, keeping its
// attempt count.
func (q *Queue) Retry(id string) error {
	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(failedKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Errorf("failed job %q not found", id)
		}
		if err != nil {
			return err
		}

		var job Job
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		}); err != nil {
			return err
		}

		job.EnqueuedAt = time.Now().UTC()
		value, err := json.Marshal(job)
		if err != nil {
			return err
		}

		if err := txn.Set(pendingKey(job.Priority, job.EnqueuedAt, job.ID), value); err != nil {
			return err
		}
		return txn.Delete(failedKey(id))
	})
}

// Stats reports the pending and failed counts.
func (q *Queue) Stats() (pending int, failed int, err error) {
	err = q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			switch {
			case strings.HasPrefix(key, pendingPrefix):
				pending++
			case strings.HasPrefix(key, failedPrefix):
				failed++
			}
		}
		return nil
	})
	return pending, failed, errors.Wrap(err, "counting jobs")
}
