// Package engine bundles the handles every long-running piece of the
// pipeline needs: configuration, a logger, the relational store, and an
// optional NSQ producer for status-change notifications. It is
// constructed once at process startup and passed explicitly to the job
// package (Job.Update, NewPool) instead of living as package-level
// globals.
package engine

import (
	"sync/atomic"

	"github.com/nsqio/go-nsq"
	gologging "github.com/op/go-logging"

	"github.com/hathitrust/feed/config"
	"github.com/hathitrust/feed/logging"
	"github.com/hathitrust/feed/store"
)

// Engine holds the shared collaborators one ingest process needs.
type Engine struct {
	Config   *config.Config
	Log      *gologging.Logger
	Store    *store.Store
	Producer *nsq.Producer

	succeeded int64
	failed    int64
}

// New builds an Engine from a loaded Config: opens the logger and the
// relational store, and connects an NSQ producer if NsqdAddress is set.
func New(cfg *config.Config, nsqdAddress string) (*Engine, error) {
	logger, _ := logging.New(cfg)

	st, err := store.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, err
	}

	e := &Engine{Config: cfg, Log: logger, Store: st}

	if nsqdAddress != "" {
		producer, err := nsq.NewProducer(nsqdAddress, nsq.NewConfig())
		if err != nil {
			st.Close()
			return nil, err
		}
		e.Producer = producer
	}
	return e, nil
}

// Close releases the store handle and NSQ producer.
func (e *Engine) Close() {
	if e.Producer != nil {
		e.Producer.Stop()
	}
	if e.Store != nil {
		e.Store.Close()
	}
}

// PublishStatusChange notifies downstream consumers (if an NSQ producer
// is configured) that (namespace, id) transitioned to status. The
// feed_queue table, not this notification, is the system of record.
func (e *Engine) PublishStatusChange(topic, namespace, id, status string) error {
	if e.Producer == nil {
		return nil
	}
	body := []byte(namespace + "." + id + ":" + status)
	return e.Producer.Publish(topic, body)
}

// Succeeded returns the number of work items that completed successfully
// so far in this process.
func (e *Engine) Succeeded() int64 { return atomic.LoadInt64(&e.succeeded) }

// Failed returns the number of work items that failed so far in this
// process.
func (e *Engine) Failed() int64 { return atomic.LoadInt64(&e.failed) }

// IncrementSucceeded records one more successfully completed work item.
func (e *Engine) IncrementSucceeded() int64 {
	return atomic.AddInt64(&e.succeeded, 1)
}

// IncrementFailed records one more failed work item.
func (e *Engine) IncrementFailed() int64 {
	return atomic.AddInt64(&e.failed, 1)
}
