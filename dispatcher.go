package rcluster

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/shardkv/rcluster/reply"
)

// outcome classifies the result of one dispatch attempt, per the §4.F.1
// state table.
type outcome int

const (
	// outcomeTerminal means the attempt is done: return its payload/error
	// to the caller, successful or not.
	outcomeTerminal outcome = iota
	// outcomeRetryNoRefresh means retry without requesting a refresh
	// (the worker will reconnect itself on next acquisition).
	outcomeRetryNoRefresh
	// outcomeRefreshRetry means request a refresh at the attempt's
	// snapshot version, then retry.
	outcomeRefreshRetry
	// outcomeColdStart is outcomeRefreshRetry's cold-start variant: no
	// snapshot was available at all, so the dispatcher must not sleep
	// before its next attempt.
	outcomeColdStart
)

func runCommand(w Worker, cmds Pipeline) (interface{}, error) {
	if len(cmds) == 1 {
		return w.Do(cmds[0])
	}
	return w.Pipeline(cmds)
}

// classifyError maps a Go error from a dispatch attempt to an outcome,
// per the §4.F.1 table: ErrNoConnection and the four routing server
// errors (MOVED, READONLY, CLUSTERDOWN, TRYAGAIN) request a refresh and
// retry; a closed-connection transport error retries without a refresh
// (the pool will reconnect lazily); anything else is terminal.
func classifyError(err error) outcome {
	if err == nil {
		return outcomeTerminal
	}
	if errors.Is(err, ErrNoConnection) {
		return outcomeRefreshRetry
	}
	if isClosedConnError(err) {
		return outcomeRetryNoRefresh
	}
	if se, ok := err.(redis.Error); ok && reply.IsRoutingSignal(string(se)) {
		return outcomeRefreshRetry
	}
	return outcomeTerminal
}

func isClosedConnError(err error) bool {
	var ne *net.OpError
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "closed network connection")
}

// classifyPipeline scans a pipeline's per-command results for any of the
// §4.F.1 retry signals and returns the most urgent one found, or
// outcomeTerminal if none apply.
func classifyPipeline(results []interface{}) outcome {
	worst := outcomeTerminal
	for _, r := range results {
		err, ok := r.(error)
		if !ok {
			continue
		}
		if o := classifyError(err); o > worst {
			worst = o
		}
	}
	return worst
}

// runWithRetry implements the §4.F.1 retry/refresh state machine: call
// attempt up to ttl times. attempt returns the payload and error to
// surface when it reports outcomeTerminal, the classified outcome
// otherwise, and the snapshot version it used for routing (so a refresh
// can be requested at the right version).
func runWithRetry(c *Cluster, ttl int, delay time.Duration, attempt func() (interface{}, error, outcome, uint64)) (interface{}, error) {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}

	skipSleep := false
	for n := 0; n < ttl; n++ {
		if n > 0 && !skipSleep {
			time.Sleep(delay)
		}
		skipSleep = false

		payload, err, o, version := attempt()
		switch o {
		case outcomeTerminal:
			return payload, err
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

// dispatchOnSlot runs run against a worker from the pool owning slot,
// retrying per the §4.F.1 state machine.
func dispatchOnSlot(c *Cluster, slot uint16, run func(Worker) (interface{}, error)) (interface{}, error) {
	attempt := func() (interface{}, error, outcome, uint64) {
		addr, version, ok := c.PoolForSlot(slot)
		if !ok {
			return nil, nil, outcomeColdStart, 0
		}
		pool := c.pool(addr)
		if pool == nil {
			return nil, nil, outcomeColdStart, version
		}

		res, err := pool.WithWorker(run)
		if err != nil {
			o := classifyError(err)
			if o == outcomeRetryNoRefresh {
				pool.reconnectAll(version)
			}
			return nil, err, o, version
		}
		if list, isList := res.([]interface{}); isList {
			if o := classifyPipeline(list); o != outcomeTerminal {
				return nil, nil, o, version
			}
		}
		return res, nil, outcomeTerminal, version
	}

	return runWithRetry(c, c.cfg.RequestTTL, c.cfg.RetryDelay, attempt)
}

// Q routes a single command or pipeline on the cluster registered as
// name, extracting the routing key automatically via KeyOf.
func Q(name string, cmds Pipeline) (interface{}, error) {
	key, ok := KeyOf(cmds)
	if !ok {
		return nil, ErrInvalidClusterCommand
	}
	return QK(name, cmds, key)
}

// QK routes cmds using routingKey instead of extracting one from cmds,
// for commands with no extractable key or callers that want to force
// affinity.
func QK(name string, cmds Pipeline, routingKey string) (interface{}, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	slot := SlotOf(routingKey)
	return dispatchOnSlot(c, slot, func(w Worker) (interface{}, error) {
		return runCommand(w, cmds)
	})
}

// TransactionFunc runs fn against a single worker from the pool owning
// routingKey's slot, retrying fn itself -- not just a fixed command list
// -- under the same refresh/retry state machine as Q/QK. fn is typically
// a WATCH ... MULTI ... EXEC sequence; see OptimisticLockingTransaction
// for the canonical use.
func TransactionFunc(name, routingKey string, fn func(Worker) (interface{}, error)) (interface{}, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return dispatchOnSlot(c, SlotOf(routingKey), fn)
}

// Transaction wraps cmds in MULTI/EXEC and returns the EXEC reply -- nil
// if the transaction was aborted, otherwise the list of per-command
// results. Callers are responsible for slot affinity: every command in
// cmds must hash to the same slot as the others.
func Transaction(name string, cmds Pipeline) (interface{}, error) {
	key, ok := KeyOf(cmds)
	if !ok {
		return nil, ErrInvalidClusterCommand
	}

	wrapped := make(Pipeline, 0, len(cmds)+2)
	wrapped = append(wrapped, Command{Verb: "MULTI"})
	wrapped = append(wrapped, cmds...)
	wrapped = append(wrapped, Command{Verb: "EXEC"})

	res, err := QK(name, wrapped, key)
	if err != nil {
		return nil, err
	}

	list, ok := res.([]interface{})
	if !ok || len(list) == 0 {
		return res, nil
	}
	return list[len(list)-1], nil
}
