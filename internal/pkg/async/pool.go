// Package async runs a batch of named jobs on a bounded worker pool. The
// analytics overview uses it to compute several aggregations concurrently.
package async

import (
	"context"
	"sync"
)

// Job is a unit of work identified by name.
type Job struct {
	Name string
	Run  func() (interface{}, error)
}

// Outcome is the result of one job.
type Outcome struct {
	Name string
	Data interface{}
	Err  error
}

// RunAll executes jobs on workerCount goroutines and returns the outcomes
// keyed by job name. It stops handing out work when ctx is cancelled;
// outcomes collected so far are returned.
func RunAll(ctx context.Context, workerCount int, jobs []Job) map[string]Outcome {
	if workerCount < 1 {
		workerCount = 1
	}

	pending := make(chan Job)
	done := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job, ok := <-pending:
					if !ok {
						return
					}
					data, err := job.Run()
					done <- Outcome{Name: job.Name, Data: data, Err: err}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(pending)
		for _, job := range jobs {
			select {
			case pending <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	outcomes := make(map[string]Outcome, len(jobs))
	for i := 0; i < len(jobs); i++ {
		select {
		case outcome := <-done:
			outcomes[outcome.Name] = outcome
		case <-ctx.Done():
			return outcomes
		}
	}

	wg.Wait()
	close(done)
	return outcomes
}
