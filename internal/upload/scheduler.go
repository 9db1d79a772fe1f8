// Package upload fans a glob-expanded "PUT <local-glob> @stage" command out
// across a bounded pool of workers, adapted from the session engine's
// worker-pool/scheduler pair to drive file uploads instead of HTTP probe
// requests.
package upload

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bendsql/bendsql-go/internal/logger"
)

// Job is one file to upload. Scheduler calls Upload for each job it admits;
// the caller supplies the actual transfer (stage.Upload, wired with the
// right *apiclient.Client and destination location).
type Job struct {
	LocalPath string
	Upload    func(ctx context.Context, localPath string) error
}

// Result pairs a Job with the error its Upload returned, if any.
type Result struct {
	Job Job
	Err error
}

// Scheduler runs a bounded number of uploads concurrently, admitting new
// ones at a rate capped by a token-bucket limiter so a large glob doesn't
// open hundreds of connections at once.
type Scheduler struct {
	workerCount int
	limiter     *rate.Limiter
	log         *logger.Logger

	jobQueue chan Job
	results  chan Result
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler with workerCount concurrent uploaders,
// admitting new jobs at up to ratePerSec per second (burst of 1).
func NewScheduler(workerCount int, ratePerSec float64, log *logger.Logger) *Scheduler {
	if workerCount < 1 {
		workerCount = 1
	}
	if log == nil {
		log = logger.New(logger.LevelError)
	}
	return &Scheduler{
		workerCount: workerCount,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		log:         log,
		jobQueue:    make(chan Job, workerCount*4),
		results:     make(chan Result, workerCount*4),
	}
}

// Run uploads every job in jobs, blocking until all have completed or ctx
// is cancelled, and returns one Result per job in completion order.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) []Result {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	go func() {
		for _, j := range jobs {
			if err := s.limiter.Wait(ctx); err != nil {
				// The limiter refuses at once when the wait would outlast
				// ctx's deadline; report that as the deadline being exceeded.
				if _, hasDeadline := ctx.Deadline(); hasDeadline && ctx.Err() == nil {
					err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
				}
				s.results <- Result{Job: j, Err: err}
				continue
			}
			select {
			case s.jobQueue <- j:
			case <-ctx.Done():
				s.results <- Result{Job: j, Err: ctx.Err()}
			}
		}
		close(s.jobQueue)
	}()

	go func() {
		s.wg.Wait()
		close(s.results)
	}()

	out := make([]Result, 0, len(jobs))
	for r := range s.results {
		out = append(out, r)
	}
	return out
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for job := range s.jobQueue {
		err := job.Upload(ctx, job.LocalPath)
		if err != nil {
			s.log.Errorf("upload: %s: %v", job.LocalPath, err)
		}
		s.results <- Result{Job: job, Err: err}
	}
}
