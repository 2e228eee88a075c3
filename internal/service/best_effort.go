package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// bestEffortTask is a side effect whose failure must not undo the work that
// preceded it.
type bestEffortTask struct {
	name string
	run  func(ctx context.Context) error
}

// runBestEffort runs the tasks concurrently and waits for all of them. Failures
// are logged as a single entry for the batch and returned joined.
func runBestEffort(ctx context.Context, log *slog.Logger, batch string, tasks []bestEffortTask) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task.run(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.name, err)
			}
		}()
	}
	wg.Wait()

	joined := errors.Join(errs...)
	if joined != nil {
		failed := 0
		for _, err := range errs {
			if err != nil {
				failed++
			}
		}
		log.WarnContext(ctx, "best-effort tasks failed",
			"batch", batch,
			"failed", failed,
			"total", len(tasks),
			"errors", joined.Error())
	}
	return joined
}
