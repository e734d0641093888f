package rcluster

import (
	"strconv"

	"github.com/gomodule/redigo/redis"
	"github.com/shardkv/rcluster/reply"
)

// Qa issues cmd against every pool in the cluster's current snapshot and
// returns one result per pool. A pool's failure is recorded as an error
// value at its position rather than aborting the whole call; it is
// underspecified whether fan-out should fail fast or collect everything,
// and this implementation collects, leaving the reduction to the caller.
func Qa(name string, cmd Command) ([]interface{}, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	addrs := c.AllPools()
	if addrs == nil {
		if err := c.Refresh(0); err != nil {
			return nil, err
		}
		addrs = c.AllPools()
	}

	out := make([]interface{}, len(addrs))
	for i, addr := range addrs {
		pool := c.pool(addr)
		if pool == nil {
			out[i] = ErrNoConnection
			continue
		}

		res, err := pool.WithWorker(func(w Worker) (interface{}, error) {
			return w.Do(cmd)
		})
		if err != nil {
			out[i] = err
			continue
		}
		out[i] = res
	}
	return out, nil
}

// FlushAll issues FLUSHDB against every primary and collapses the
// per-pool results into a single error if any pool reported one.
func FlushAll(name string) error {
	results, err := Qa(name, Command{Verb: "FLUSHDB"})
	if err != nil {
		return err
	}
	for _, r := range results {
		if e, ok := r.(error); ok {
			return e
		}
	}
	return nil
}

// EvalSha runs EVALSHA sha numkeys keysAndArgs... routed by the first
// key, or the fixed stand-in key "A" when numkeys is 0. If the node
// reports NOSCRIPT, it loads body via SCRIPT LOAD and EVALSHA again in
// the same pipeline, to the same routing key, and returns the second
// element.
func EvalSha(name, sha string, numkeys int, keysAndArgs []string, body string) (interface{}, error) {
	routingKey := "A"
	if numkeys > 0 && len(keysAndArgs) > 0 {
		routingKey = keysAndArgs[0]
	}

	args := make([]string, 0, len(keysAndArgs)+2)
	args = append(args, sha, strconv.Itoa(numkeys))
	args = append(args, keysAndArgs...)
	cmd := Command{Verb: "EVALSHA", Args: args}

	res, err := QK(name, Pipeline{cmd}, routingKey)
	if err == nil {
		return res, nil
	}

	se, ok := err.(redis.Error)
	if !ok || !reply.IsNoScript(string(se)) {
		return nil, err
	}

	loadCmd := Command{Verb: "SCRIPT", Args: []string{"LOAD", body}}
	res, err = QK(name, Pipeline{loadCmd, cmd}, routingKey)
	if err != nil {
		return nil, err
	}

	list, ok := res.([]interface{})
	if !ok || len(list) < 2 {
		return res, nil
	}
	return list[1], nil
}

// OptimisticLockingTransaction implements the WATCH-based CAS pattern:
// on a single worker from the pool owning key's slot, it runs WATCH key,
// the read command, lets fn compute a write pipeline (and an arbitrary
// extra return value) from the current value, then wraps the write in
// MULTI/EXEC. A nil EXEC reply means the watched key changed underneath
// the transaction; the whole sequence -- including the read and the call
// to fn -- is retried up to OLTransactionTTL times before surfacing
// ErrResourceBusy. This is orthogonal to the routing retries TransactionFunc
// already performs for each individual attempt: one handles CAS
// contention, the other handles stale routing.
func OptimisticLockingTransaction(name, key string, read Command, fn func(current interface{}) (write Pipeline, extra interface{}, err error)) (interface{}, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	ttl := c.cfg.OLTransactionTTL
	if ttl <= 0 {
		ttl = DefaultOLTransactionTTL
	}

	var extra interface{}
	for attempt := 0; attempt < ttl; attempt++ {
		var userErr error

		result, err := TransactionFunc(name, key, func(w Worker) (interface{}, error) {
			if _, err := w.Do(Command{Verb: "WATCH", Args: []string{key}}); err != nil {
				return nil, err
			}

			current, err := w.Do(read)
			if err != nil {
				return nil, err
			}

			write, x, ferr := fn(current)
			if ferr != nil {
				userErr = ferr
				w.Do(Command{Verb: "UNWATCH"})
				return nil, nil
			}
			extra = x

			full := make(Pipeline, 0, len(write)+2)
			full = append(full, Command{Verb: "MULTI"})
			full = append(full, write...)
			full = append(full, Command{Verb: "EXEC"})
			return runCommand(w, full)
		})
		if userErr != nil {
			return nil, userErr
		}
		if err != nil {
			return nil, err
		}

		list, ok := result.([]interface{})
		if !ok || len(list) == 0 {
			continue
		}
		if execReply := list[len(list)-1]; execReply == nil {
			continue // watched key changed since WATCH: retry
		}
		return extra, nil
	}

	return nil, ErrResourceBusy
}
