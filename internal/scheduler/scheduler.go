// Package scheduler runs the certificate jobs on cron schedules.
//
// Specs use the standard five-field syntax plus descriptors such as
// "@daily" or "@every 6h". A job that is still running when its next tick
// arrives is skipped, and a failing job is logged without stopping the
// scheduler.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// JobFunc is one scheduled unit of work
type JobFunc func(ctx context.Context) error

// Entry describes a registered job
type Entry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitempty"`
}

type job struct {
	name string
	spec string
	id   cron.EntryID
	fn   JobFunc
}

// Scheduler owns a cron instance and the jobs registered on it
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]*job
}

// New creates a scheduler in the local time zone
func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	l := cronLogger{}
	return &Scheduler{
		parser: parser,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx:  context.Background(),
		jobs: make(map[string]*job),
	}
}

// Add registers fn under name. An empty spec disables the job and reports
// false; an unparsable spec is a VALIDATION error.
func (s *Scheduler) Add(name, spec string, fn JobFunc) (bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		logger.Debug("Job %s has no schedule, skipping", name)
		return false, nil
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return false, nberrors.Validation(fmt.Sprintf("invalid schedule %q for job %s: %v", spec, name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return false, nberrors.Validation("job already registered: " + name)
	}

	j := &job{name: name, spec: spec, fn: fn}
	id, err := s.cron.AddFunc(spec, func() { s.run(j) })
	if err != nil {
		return false, nberrors.Validation(fmt.Sprintf("invalid schedule %q for job %s: %v", spec, name, err))
	}
	j.id = id
	s.jobs[name] = j
	return true, nil
}

// Entries lists registered jobs by name. Next is zero until Run starts.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, Entry{Name: j.name, Spec: j.spec, Next: s.cron.Entry(j.id).Next})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Trigger runs a registered job immediately with ctx and returns its error
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nberrors.Validation("unknown job: " + name)
	}
	return s.exec(ctx, j)
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits
// for running jobs to finish
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return nberrors.Validation("no jobs scheduled")
	}
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	logger.Info("Scheduler started with %d job(s)", len(s.Entries()))

	<-ctx.Done()
	logger.Info("Scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// run is the cron entry point; it uses the context passed to Run
func (s *Scheduler) run(j *job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	_ = s.exec(ctx, j)
}

func (s *Scheduler) exec(ctx context.Context, j *job) error {
	start := time.Now()
	logger.InfoFields("Job started", map[string]interface{}{"job": j.name})
	err := j.fn(ctx)
	fields := map[string]interface{}{
		"job":      j.name,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorFields("Job failed", fields)
		return err
	}
	logger.InfoFields("Job finished", fields)
	return nil
}

// cronLogger adapts cron's logr-style interface to the package logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.DebugFields("cron: "+msg, kv(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kv(keysAndValues)
	fields["error"] = fmt.Sprint(err)
	logger.ErrorFields("cron: "+msg, fields)
}

func kv(pairs []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(pairs)/2+1)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return fields
}
