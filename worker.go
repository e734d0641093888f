package rcluster

import "github.com/gomodule/redigo/redis"

// Worker is a single connection capable of running one command or one
// pipelined batch of commands at a time. It is the unit of work a Pool
// hands to the function passed to WithWorker, for the duration of one
// request. If a caller issues multiple commands on the same Worker, they
// are serialized on its socket -- this is how WATCH/MULTI/EXEC sequences
// and pipelines preserve ordering.
type Worker interface {
	// Do runs a single command and returns its reply. A server error
	// reply (e.g. "MOVED ...") comes back as the error, of dynamic type
	// github.com/gomodule/redigo/redis.Error.
	Do(cmd Command) (interface{}, error)

	// Pipeline runs cmds back-to-back on the same connection and returns
	// one reply per command, in order. The returned error is non-nil
	// only for a transport-level failure that prevented the whole batch
	// from being sent; a per-command server error reply instead appears
	// as a redis.Error value at that command's position in the result
	// slice.
	Pipeline(cmds Pipeline) ([]interface{}, error)
}

// redigoWorker adapts a redigo redis.Conn to the Worker interface.
type redigoWorker struct {
	conn redis.Conn
}

func toArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func (w *redigoWorker) Do(cmd Command) (interface{}, error) {
	return w.conn.Do(cmd.Verb, toArgs(cmd.Args)...)
}

func (w *redigoWorker) Pipeline(cmds Pipeline) ([]interface{}, error) {
	for _, cmd := range cmds {
		if err := w.conn.Send(cmd.Verb, toArgs(cmd.Args)...); err != nil {
			return nil, err
		}
	}
	if err := w.conn.Flush(); err != nil {
		return nil, err
	}

	out := make([]interface{}, len(cmds))
	for i := range cmds {
		reply, err := w.conn.Receive()
		if err != nil {
			out[i] = err
			continue
		}
		out[i] = reply
	}
	return out, nil
}
