// Package job implements Job, the unit of work the pipeline tracks
// through the feed_queue table, and Pool, the worker pool that runs jobs
// concurrently.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/engine"
	"github.com/hathitrust/feed/namespace"
	"github.com/hathitrust/feed/packagetype"
	"github.com/hathitrust/feed/stage"
	"github.com/hathitrust/feed/store"
	"github.com/hathitrust/feed/volume"
)

// Job tracks one object moving through the pipeline's stages.
type Job struct {
	Namespace    *namespace.Namespace
	PackageType  *packagetype.PackageType
	Objid        string
	Status       string
	FailureCount int
	Node         string
	Priority     int

	cfg *config.Config
	st  *store.Store
	vol *volume.Volume

	lastStage stage.Stage
}

// New constructs a Job in the given status.
func New(ns *namespace.Namespace, pt *packagetype.PackageType, objid, status string, cfg *config.Config, st *store.Store) *Job {
	return &Job{
		Namespace:   ns,
		PackageType: pt,
		Objid:       objid,
		Status:      status,
		cfg:         cfg,
		st:          st,
	}
}

// Volume lazily constructs and caches this job's Volume.
func (j *Job) Volume() *volume.Volume {
	if j.vol == nil {
		j.vol = volume.New(j.Namespace, j.PackageType, j.Objid, j.cfg, j.st)
	}
	return j.vol
}

// stageIdentifier returns the Stage identifier mapped to the job's
// current status, and whether one exists.
func (j *Job) stageIdentifier() (string, bool) {
	id, ok := j.PackageType.StageMap[j.Status]
	return id, ok
}

// Runnable reports whether the job's current status has a mapped Stage,
// i.e. whether the pipeline has more work to do for it.
func (j *Job) Runnable() bool {
	_, ok := j.stageIdentifier()
	return ok
}

// Run looks up the Stage mapped to the job's current status, runs it
// against the job's Volume, and advances Status to the stage's success
// or failure state. It returns false if the job wasn't Runnable or if
// the stage failed; callers read LastError for detail.
func (j *Job) Run(ctx context.Context) bool {
	id, ok := j.stageIdentifier()
	if !ok {
		return false
	}

	s, err := stage.Lookup(id)
	if err != nil {
		j.FailureCount++
		return false
	}
	j.lastStage = s

	ok = s.Run(ctx, j.Volume())
	info := s.Info()
	if ok {
		j.Status = info.SuccessState
	} else {
		j.Status = info.FailureState
		j.FailureCount++
	}
	return ok
}

// LastError returns the error recorded by the most recently run Stage,
// or nil if no stage has run yet or the last one succeeded.
func (j *Job) LastError() error {
	if j.lastStage == nil {
		return nil
	}
	return j.lastStage.Error()
}

// Update persists the job's current status to feed_queue and, if eng has
// an NSQ producer configured, publishes a status-change notification.
// The feed_queue row remains the system of record regardless of whether
// the notification is delivered.
func (j *Job) Update(ctx context.Context, eng *engine.Engine) error {
	err := eng.Store.UpsertFeedQueue(ctx, store.FeedQueueRow{
		Namespace:    j.Namespace.Identifier,
		ID:           j.Objid,
		Status:       j.Status,
		Node:         j.Node,
		FailureCount: j.FailureCount,
		Priority:     j.Priority,
	})
	if err != nil {
		return err
	}
	if j.LastError() != nil {
		_ = eng.Store.LogError(ctx, j.Namespace.Identifier, j.Objid, "", j.Status, j.LastError().Error())
	}
	return eng.PublishStatusChange("feed.status", j.Namespace.Identifier, j.Objid, j.Status)
}

// Pool runs jobs concurrently across a fixed number of worker
// goroutines, mirroring the channel-pipeline shape used elsewhere in
// this codebase's queue-driven workers: one buffered input channel, N
// goroutines launched from the constructor, one WaitGroup tracking them,
// and a results channel the caller drains.
type Pool struct {
	eng     *engine.Engine
	jobs    chan *Job
	results chan *Job
	wg      sync.WaitGroup
}

// NewPool starts a worker pool of the given size. Size is typically
// cfg.Dataset.Threads.
func NewPool(eng *engine.Engine, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		eng:     eng,
		jobs:    make(chan *Job, size*10),
		results: make(chan *Job, size*10),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		j.Run(ctx)
		if err := j.Update(ctx, p.eng); err != nil {
			p.eng.Log.Errorf("updating job %s.%s: %v", j.Namespace.Identifier, j.Objid, err)
		}
		cancel()
		if j.LastError() != nil {
			p.eng.IncrementFailed()
		} else {
			p.eng.IncrementSucceeded()
		}
		p.results <- j
	}
}

// Submit enqueues a job for processing. It blocks if the input channel
// is full.
func (p *Pool) Submit(j *Job) {
	p.jobs <- j
}

// Results returns the channel of jobs that have completed one Run.
func (p *Pool) Results() <-chan *Job {
	return p.results
}

// Close stops accepting new jobs, waits for in-flight work to finish,
// and closes the results channel.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}
