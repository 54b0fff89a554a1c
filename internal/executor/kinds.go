package executor

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"

	"delayed-task-queue/internal/types"
)

const barUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"

// runFoo does not sleep: the three second delay is already part of the
// task's process_at.
func (e *Executor) runFoo(_ context.Context, task types.Task) error {
	e.writeLine("Foo %s", task.ID)
	return nil
}

// runBar prints the status of a GET to the Bar URL. The site answers 400
// without browser-like headers.
func (e *Executor) runBar(ctx context.Context, _ types.Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.barURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build bar request: %w", err)
	}
	req.Header.Set("User-Agent", barUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		e.writeLine("%v", err)
		return fmt.Errorf("bar request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	e.writeLine("%s", resp.Status)
	return nil
}

func (e *Executor) runBaz(_ context.Context, _ types.Task) error {
	e.writeLine("Baz %d", rand.IntN(344))
	return nil
}
