// Package stress provides a small concurrent create/delete/migrate/set-state
// harness used by the core's -race tests, grounded on catrate.Limiter's own
// pattern of spinning up N goroutines against one shared resource and
// collecting whatever each one observed.
package stress

import (
	"sync"

	"github.com/joeycumines/dominion"
)

type position struct{ X int }
type extra struct{ Y int }

type state int

func (s state) StateOrdinal() int { return int(s) }

const stateActive state = 1

// Result summarizes one worker's pass through the loop.
type Result struct {
	Created int
	Deleted int
	Migrated int
	Panicked any
}

// Run spawns workers goroutines, each performing iterations rounds of
// create/set-state/attach (every other round)/delete against comp and dest,
// and returns
// one Result per worker. It does not itself assert anything: callers (tests)
// inspect the returned Results and, separately, the World's final state
// (e.g. via World.AllEntities) after Run returns.
func Run(comp, dest *dominion.Composition, workers, iterations int) []Result {
	results := make([]Result, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i].Panicked = r
				}
			}()
			results[i] = runWorker(comp, dest, iterations)
		}()
	}
	wg.Wait()

	return results
}

func runWorker(comp, dest *dominion.Composition, iterations int) Result {
	var res Result
	for n := 0; n < iterations; n++ {
		e, err := comp.CreateEntity(position{X: n})
		if err != nil {
			continue
		}
		res.Created++

		comp.SetState(e, stateActive)

		if n%2 == 0 {
			if _, err := comp.AttachEntity(e, dest, extra{Y: n}); err == nil {
				res.Migrated++
				dest.DeleteEntity(e)
				res.Deleted++
				continue
			}
		}

		comp.DeleteEntity(e)
		res.Deleted++
	}
	return res
}
