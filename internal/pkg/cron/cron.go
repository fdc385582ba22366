// Package cron runs interval jobs in the background of the server process.
package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart executes the job once immediately on Start.
	RunOnStart bool
	Fn         func(ctx context.Context) error
}

// Status is a snapshot of a job's last execution.
type Status struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

type jobState struct {
	Job
	mu        sync.Mutex
	running   bool
	lastRunAt *time.Time
	lastErr   error
}

type Scheduler struct {
	mu     sync.RWMutex
	jobs   map[string]*jobState
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: make(map[string]*jobState), logger: logger}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{Job: job}
}

// Start launches every registered job. Jobs stop when ctx is cancelled; Wait
// blocks until they have returned.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, js)
	}
}

func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context, js *jobState) {
	defer s.wg.Done()
	if js.RunOnStart {
		s.execute(ctx, js)
	}
	ticker := time.NewTicker(js.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, js)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) {
	js.mu.Lock()
	if js.running {
		js.mu.Unlock()
		return
	}
	js.running = true
	js.mu.Unlock()

	start := time.Now()
	err := js.Fn(ctx)

	js.mu.Lock()
	js.running = false
	js.lastRunAt = &start
	js.lastErr = err
	js.mu.Unlock()

	if err != nil {
		s.logger.Error("cron job failed", zap.String("job", js.Name), zap.Error(err))
		return
	}
	s.logger.Debug("cron job done", zap.String("job", js.Name), zap.Duration("took", time.Since(start)))
}

// Run executes a job synchronously by name.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	s.execute(ctx, js)
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.lastErr
}

// List returns the status of every job, sorted by name.
func (s *Scheduler) List() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.jobs))
	for _, js := range s.jobs {
		js.mu.Lock()
		st := Status{Name: js.Name, Interval: js.Interval, Running: js.running, LastRunAt: js.lastRunAt}
		if js.lastErr != nil {
			st.LastError = js.lastErr.Error()
		}
		js.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
