package webapp

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// sections fetches the independent parts of a page concurrently.
// A failing part only fails itself. A request that ends while loading stops every part.
type sections struct {
	req context.Context
	ctx context.Context
	g   *errgroup.Group

	mu   sync.Mutex
	errs map[string]error
}

func newSections(req context.Context) *sections {
	g, ctx := errgroup.WithContext(req)
	return &sections{req: req, ctx: ctx, g: g, errs: make(map[string]error)}
}

func (ss *sections) Go(name string, fetch func(ctx context.Context) error) {
	ss.g.Go(func() error {
		err := fetch(ss.ctx)
		if err == nil {
			return nil
		}
		if reqErr := ss.req.Err(); reqErr != nil {
			return reqErr // cancels the siblings
		}
		ss.mu.Lock()
		ss.errs[name] = err
		ss.mu.Unlock()
		return nil
	})
}

// Wait returns the error of every failed part by name.
// It fails with 503 when the request ended before the page could be loaded.
func (ss *sections) Wait() (map[string]error, error) {
	if err := ss.g.Wait(); err != nil {
		return nil, &echo.HTTPError{
			Code:     http.StatusServiceUnavailable,
			Message:  http.StatusText(http.StatusServiceUnavailable),
			Internal: err,
		}
	}
	return ss.errs, nil
}
