package rcluster

import "time"

// bucketEntry remembers a command's position in the original pipeline
// while it sits in its pool's bucket.
type bucketEntry struct {
	index int
	cmd   Command
}

type bucketResult struct {
	entries []bucketEntry
	results []interface{}
	err     error
}

// qmnAttempt implements one pass of §4.G steps 1-5: extract each
// command's key and slot, bucket by pool while preserving order within
// a bucket, run every bucket's pipeline concurrently, and either
// reassemble the results in original order or report the worst outcome
// seen across all buckets.
func qmnAttempt(c *Cluster, cmds Pipeline) ([]interface{}, error, outcome, uint64) {
	buckets := make(map[string][]bucketEntry)
	var version uint64

	for i, cmd := range cmds {
		key, ok := keyOfOne(cmd)
		if !ok {
			return nil, ErrInvalidClusterCommand, outcomeTerminal, 0
		}

		addr, v, ok := c.PoolForSlot(SlotOf(key))
		if !ok {
			return nil, nil, outcomeColdStart, 0
		}
		version = v
		buckets[addr] = append(buckets[addr], bucketEntry{index: i, cmd: cmd})
	}

	resCh := make(chan bucketResult, len(buckets))
	for addr, entries := range buckets {
		addr, entries := addr, entries
		go func() {
			pool := c.pool(addr)
			if pool == nil {
				resCh <- bucketResult{entries: entries, err: ErrNoConnection}
				return
			}

			bucketCmds := make(Pipeline, len(entries))
			for i, e := range entries {
				bucketCmds[i] = e.cmd
			}

			res, err := pool.WithWorker(func(w Worker) (interface{}, error) {
				list, err := w.Pipeline(bucketCmds)
				return list, err
			})
			if err != nil {
				if classifyError(err) == outcomeRetryNoRefresh {
					pool.reconnectAll(version)
				}
				resCh <- bucketResult{entries: entries, err: err}
				return
			}

			list, isList := res.([]interface{})
			if !isList {
				list = []interface{}{res}
			}
			resCh <- bucketResult{entries: entries, results: list}
		}()
	}

	out := make([]interface{}, len(cmds))
	worst := outcomeTerminal
	for range buckets {
		br := <-resCh
		if br.err != nil {
			if o := classifyError(br.err); o > worst {
				worst = o
			}
			continue
		}
		if o := classifyPipeline(br.results); o != outcomeTerminal {
			if o > worst {
				worst = o
			}
			continue
		}
		for i, e := range br.entries {
			out[e.index] = br.results[i]
		}
	}

	if worst != outcomeTerminal {
		return nil, nil, worst, version
	}
	return out, nil, outcomeTerminal, version
}

// Qmn splits a pipeline across the pools its commands hash to, runs each
// pool's bucket in parallel, and reassembles the results in the
// pipeline's original order. Unlike Q/QK, the commands in cmds may
// belong to different slots. If any bucket signals a retry, the whole
// call restarts from scratch at step 1, discarding partial results --
// a refresh triggered by one bucket invalidates every other bucket's
// snapshot version too.
func Qmn(name string, cmds Pipeline) ([]interface{}, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	ttl := c.cfg.RequestTTL
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	delay := c.cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	skipSleep := false
	for n := 0; n < ttl; n++ {
		if n > 0 && !skipSleep {
			time.Sleep(delay)
		}
		skipSleep = false

		results, aerr, o, version := qmnAttempt(c, cmds)
		switch o {
		case outcomeTerminal:
			return results, aerr
		case outcomeColdStart:
			c.Refresh(version)
			skipSleep = true
		case outcomeRefreshRetry:
			c.Refresh(version)
		case outcomeRetryNoRefresh:
			// just retry
		}
	}

	return nil, ErrNoConnection
}
