package fit

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/xraylab/speccal/internal/spectral"
)

// Progress is one update from a running case. Emitted from worker
// goroutines; consumers must be safe for concurrent calls.
type Progress struct {
	Case      int
	Iteration int
	Cost      float64
	Done      bool
	Status    Status
}

// dispatcher fans the independent cases out over a fixed worker pool.
// Workers share nothing mutable: every case resolves its own deep-copied
// model, and datasets are read-only.
type dispatcher struct {
	workers    int
	logger     *zap.Logger
	onProgress func(Progress)
}

func (d *dispatcher) run(shared *spectral.Composite, datasets []Dataset, cases []Case, cfg loopConfig) []Result {
	tasks := make(chan Case)
	results := make([]Result, len(cases))

	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range tasks {
				caseCfg := cfg
				caseCfg.Logger = d.logger.Named(fmt.Sprintf("case-%02d", c.ID))
				if d.onProgress != nil {
					id := c.ID
					caseCfg.OnIteration = func(iteration int, cost float64) {
						d.onProgress(Progress{Case: id, Iteration: iteration, Cost: cost})
					}
				}

				caseCfg.Logger.Info("starting case",
					zap.String("filters", materialNames(c.FilterMaterials)),
					zap.String("scintillators", materialNames(c.ScintillatorMaterials)))

				res := runCase(c, shared, datasets, caseCfg)
				results[c.ID] = res

				if d.onProgress != nil {
					d.onProgress(Progress{Case: c.ID, Iteration: res.Iterations, Cost: res.Cost, Done: true, Status: res.Status})
				}
			}
		}()
	}

	for _, c := range cases {
		tasks <- c
	}
	close(tasks)
	wg.Wait()

	return results
}

// selectBest picks the minimum-cost case. Diverged cases are candidates
// only when every case diverged.
func selectBest(results []Result) (Result, bool) {
	best := -1
	bestCost := math.Inf(1)
	anyHealthy := false
	for _, r := range results {
		if r.Status != StatusDiverged {
			anyHealthy = true
		}
	}
	for i, r := range results {
		if anyHealthy && r.Status == StatusDiverged {
			continue
		}
		cost := r.Cost
		if math.IsNaN(cost) {
			cost = math.Inf(1)
		}
		if best == -1 || cost < bestCost {
			best = i
			bestCost = cost
		}
	}
	if best == -1 {
		return Result{}, false
	}
	return results[best], true
}

func materialNames(materials []spectral.Material) string {
	names := ""
	for i, m := range materials {
		if i > 0 {
			names += ","
		}
		names += m.Formula
	}
	return names
}
