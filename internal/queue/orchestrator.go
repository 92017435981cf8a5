// Package queue is the upload orchestrator: the single funnel every trigger
// source (CLI, scheduler, watcher) pushes through. It validates targets
// against the server registry, signs requests with the active identity,
// drives the transport, and records every outcome in history.
//
// Each Queue executes strictly sequentially; distinct queues may run
// concurrently up to the orchestrator's parallelism limit.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/portside/shipper/internal/archive"
	"github.com/portside/shipper/internal/notify"
	"github.com/portside/shipper/internal/sigkey"
	"github.com/portside/shipper/internal/store"
	"github.com/portside/shipper/internal/transport"
)

var (
	// ErrUnknownServer rejects an enqueue referencing a server id that is
	// not in the registry.
	ErrUnknownServer = errors.New("unknown server")
	// ErrInvalidPathKey rejects a path key outside the server's whitelist.
	ErrInvalidPathKey = errors.New("path key not allowed for server")
	// ErrNoIdentity aborts a run: no signed request can be formed.
	ErrNoIdentity = errors.New("no signing identity configured")
	// ErrNotPending is returned when removing or retrying a task in the
	// wrong state.
	ErrNotPending = errors.New("task is not pending")
)

// Transport moves bytes to a receiver. Implemented by transport.Client;
// an interface so tests can fail uploads deterministically.
type Transport interface {
	Upload(ctx context.Context, serverURL, pathKey, filename, filePath string, extract bool,
		hdr *sigkey.Headers, onProgress func(sent, total int64)) (*transport.Result, error)
}

// Orchestrator holds the collaborators shared by all queues.
type Orchestrator struct {
	db *store.DB
	tr Transport

	notifier *notify.Notifier

	// slots bounds how many queues upload concurrently. Nil means
	// unbounded.
	slots chan struct{}

	mu        sync.Mutex
	listeners []func(ProgressEvent)
}

// New builds an orchestrator. parallelism <= 0 leaves cross-queue
// concurrency unbounded; within a queue execution is always sequential.
func New(db *store.DB, tr Transport, notifier *notify.Notifier, parallelism int) *Orchestrator {
	o := &Orchestrator{db: db, tr: tr, notifier: notifier}
	if parallelism > 0 {
		o.slots = make(chan struct{}, parallelism)
	}
	return o
}

// Subscribe registers a listener for progress events from all queues.
func (o *Orchestrator) Subscribe(fn func(ProgressEvent)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	o.mu.Lock()
	listeners := make([]func(ProgressEvent), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// NewQueue creates an independent FIFO task queue.
func (o *Orchestrator) NewQueue() *Queue {
	return &Queue{orch: o}
}

// Queue is a FIFO list of tasks executed one at a time.
type Queue struct {
	orch *Orchestrator

	mu    sync.Mutex
	tasks []*Task
}

// Enqueue validates the target and appends a pending task. Validation
// failures are returned synchronously and leave no trace in the queue.
func (q *Queue) Enqueue(sourcePath, serverID, pathKey string, extract bool) (*Task, error) {
	srv, err := q.orch.db.Server(serverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownServer, serverID)
		}
		return nil, err
	}
	if !srv.HasPathKey(pathKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPathKey, pathKey)
	}

	info, err := archive.Inspect(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("cannot inspect source: %w", err)
	}

	filename := info.Name
	if info.IsDir {
		filename += ".zip"
	}

	task := &Task{
		ID:          uuid.NewString(),
		SourcePath:  sourcePath,
		Filename:    filename,
		SizeBytes:   info.Size,
		IsDirectory: info.IsDir,
		FileCount:   info.FileCount,
		ServerID:    serverID,
		PathKey:     pathKey,
		Extract:     extract,
		Status:      StatusPending,
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	return task, nil
}

// Tasks returns a snapshot of the queue, completed tasks included.
func (q *Queue) Tasks() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = *t
	}
	return out
}

// Remove drops a pending task before it is dispatched. Tasks already
// uploading or finished cannot be removed.
func (q *Queue) Remove(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tasks {
		if t.ID == taskID {
			if t.Status != StatusPending {
				return ErrNotPending
			}
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Retry moves a failed task back to pending so the next Run picks it up.
func (q *Queue) Retry(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.ID == taskID {
			if t.Status != StatusError {
				return fmt.Errorf("task %s is %s, only failed tasks can be retried", taskID, t.Status)
			}
			t.Status = StatusPending
			t.Progress = 0
			t.ErrorMessage = ""
			return nil
		}
	}
	return store.ErrNotFound
}

// nextPending returns the first pending task in FIFO order.
func (q *Queue) nextPending() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.Status == StatusPending {
			return t
		}
	}
	return nil
}

// Run drains the queue, one transfer in flight at a time. Transport
// failures are recorded per task and never abort siblings. A missing
// identity is fatal: Run returns ErrNoIdentity with all remaining tasks
// left pending for a later retry.
func (q *Queue) Run(ctx context.Context) error {
	if q.orch.slots != nil {
		select {
		case q.orch.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-q.orch.slots }()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := q.nextPending()
		if task == nil {
			return nil
		}
		if err := q.orch.process(ctx, q, task); err != nil {
			return err
		}
	}
}

func (q *Queue) setStatus(task *Task, status TaskStatus) {
	q.mu.Lock()
	task.Status = status
	q.mu.Unlock()
}

// process executes one task to a terminal state. Only ErrNoIdentity (or
// context cancellation) propagates; everything else lands on the task.
func (o *Orchestrator) process(ctx context.Context, q *Queue, task *Task) error {
	identity, err := o.db.Identity()
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrNoIdentity
	}

	srv, err := o.db.Server(task.ServerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			o.finishError(q, task, "", fmt.Sprintf("server %s no longer exists", task.ServerID))
			return nil
		}
		return err
	}

	q.setStatus(task, StatusUploading)
	o.emit(ProgressEvent{TaskID: task.ID, Filename: task.Filename, Percent: 0})

	filePath := task.SourcePath
	if task.IsDirectory {
		zipPath, err := archive.PackDir(task.SourcePath)
		if err != nil {
			o.finishError(q, task, srv.Name, fmt.Sprintf("failed to pack directory: %v", err))
			return nil
		}
		defer os.Remove(zipPath)
		filePath = zipPath
	}

	urlPath := fmt.Sprintf("/upload/%s/%s", task.PathKey, task.Filename)
	hdr, err := sigkey.SignRequest(identity.PrivateKey, urlPath)
	if err != nil {
		// Stored key material is unusable, which is as fatal as having
		// none: no request in this run can be signed.
		q.setStatus(task, StatusPending)
		return fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	res, err := o.tr.Upload(ctx, srv.URL, task.PathKey, task.Filename, filePath, task.Extract, hdr,
		func(sent, total int64) {
			q.mu.Lock()
			// Progress only ever applies to the task currently uploading.
			if task.Status == StatusUploading && total > 0 {
				task.Progress = float64(sent) / float64(total) * 100
			}
			percent := task.Progress
			q.mu.Unlock()
			o.emit(ProgressEvent{TaskID: task.ID, Filename: task.Filename, Percent: percent})
		})

	switch {
	case err != nil:
		o.finishError(q, task, srv.Name, err.Error())
	case !res.Success:
		o.finishError(q, task, srv.Name, res.Error)
	default:
		q.mu.Lock()
		task.Status = StatusSuccess
		task.Progress = 100
		q.mu.Unlock()
		o.emit(ProgressEvent{TaskID: task.ID, Filename: task.Filename, Percent: 100})
		o.record(task, srv.Name, store.HistorySuccess, "")
	}
	return nil
}

// finishError marks the task failed and records the outcome. The task keeps
// its error message so nothing vanishes silently.
func (o *Orchestrator) finishError(q *Queue, task *Task, serverName, msg string) {
	q.mu.Lock()
	task.Status = StatusError
	task.ErrorMessage = msg
	q.mu.Unlock()

	o.record(task, serverName, store.HistoryFailed, msg)
	o.notifier.UploadFailed(serverName, task.Filename, msg)
}

func (o *Orchestrator) record(task *Task, serverName, status, errMsg string) {
	err := o.db.AddHistory(store.HistoryEntry{
		ServerID:   task.ServerID,
		ServerName: serverName,
		PathKey:    task.PathKey,
		Filename:   task.Filename,
		FileSize:   task.SizeBytes,
		Status:     status,
		ErrorMsg:   errMsg,
	})
	if err != nil {
		log.Printf("[queue] failed to record history for %s: %v", task.Filename, err)
	}
}
