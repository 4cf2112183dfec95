package uptime

import (
	"context"
	"sync"

	"uptime-inspector/model"
)

// ===== Workers =====

// ProbeMenus probes every menu of a system concurrently and returns the
// results in menu declaration order.
func (c *Checker) ProbeMenus(ctx context.Context, baseURL string, menus []model.Menu) []model.MenuProbeResult {
	results := make([]model.MenuProbeResult, len(menus))
	if len(menus) == 0 {
		return results
	}

	n := c.numWorkers
	if n > len(menus) {
		n = len(menus)
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go c.worker(ctx, i, jobs, results, &wg)
	}

	for i, m := range menus {
		jobs <- job{index: i, menu: m, url: baseURL + m.Path}
	}
	close(jobs)
	wg.Wait()
	c.ilog("Probed %d menus of %s with %d workers", len(menus), baseURL, n)
	return results
}

func (c *Checker) worker(ctx context.Context, id int, jobs <-chan job, results []model.MenuProbeResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		c.ilog("Worker %d picked menu %s (%s)", id, j.menu.Name, j.url)
		res := c.Probe(ctx, j.url, c.timeout)
		res.MenuName = j.menu.Name
		res.Path = j.menu.Path
		// each index is written by exactly one worker
		results[j.index] = res
		c.log(j.url, res)
	}
}
