package runtime

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// forkGroup tracks consecutive forks dispatched concurrently.
// A failing fork does not cancel its siblings.
type forkGroup struct {
	g      errgroup.Group
	mu     sync.Mutex
	failed Node
	err    error
}

func (f *forkGroup) start(n Node, fn func() error) {
	f.g.Go(func() error {
		err := fn()
		if err != nil {
			f.mu.Lock()
			if f.err == nil {
				f.failed, f.err = n, err
			}
			f.mu.Unlock()
		}
		return err
	})
}

// wait joins every fork and reports the first failure.
func (f *forkGroup) wait() (Node, error) {
	if err := f.g.Wait(); err == nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed, f.err
}
