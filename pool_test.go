package rcluster

import (
	"testing"

	"github.com/shardkv/rcluster/redistest"
	"github.com/shardkv/rcluster/redistest/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolWithWorkerRoundTrip(t *testing.T) {
	s := redistest.StartMockServer(t, func(cmd string, args ...string) interface{} {
		if cmd == "PING" {
			return resp.Pong{}
		}
		return resp.OK{}
	})
	defer s.Close()

	p := newWorkerPool(s.Addr, "", 2, 2, nil)
	defer p.drain()

	res, err := p.WithWorker(func(w Worker) (interface{}, error) {
		return w.Do(Command{Verb: "PING"})
	})
	require.NoError(t, err)
	assert.Equal(t, "PONG", res)
}

func TestWorkerPoolReleasesWorkerOnPanic(t *testing.T) {
	s := redistest.StartMockServer(t, func(cmd string, args ...string) interface{} {
		return resp.Pong{}
	})
	defer s.Close()

	p := newWorkerPool(s.Addr, "", 1, 0, nil)
	defer p.drain()

	func() {
		defer func() { recover() }()
		p.WithWorker(func(w Worker) (interface{}, error) {
			panic("boom")
		})
	}()

	// the panicking call must still have released its connection back
	// to the pool, or this borrow blocks/fails against the size-1 pool.
	res, err := p.WithWorker(func(w Worker) (interface{}, error) {
		return w.Do(Command{Verb: "PING"})
	})
	require.NoError(t, err)
	assert.Equal(t, "PONG", res)
}

func TestWorkerPoolReconnectAllCoalescesSameVersion(t *testing.T) {
	s := redistest.StartMockServer(t, func(cmd string, args ...string) interface{} {
		return resp.OK{}
	})
	defer s.Close()

	p := newWorkerPool(s.Addr, "", 1, 0, nil)
	defer p.drain()

	first := p.redigoPool()
	p.reconnectAll(5)
	second := p.redigoPool()
	assert.NotSame(t, first, second)

	p.reconnectAll(5)
	third := p.redigoPool()
	assert.Same(t, second, third)

	p.reconnectAll(6)
	fourth := p.redigoPool()
	assert.NotSame(t, third, fourth)
}

func TestWorkerPoolDrainClosesPool(t *testing.T) {
	s := redistest.StartMockServer(t, func(cmd string, args ...string) interface{} {
		return resp.OK{}
	})
	defer s.Close()

	p := newWorkerPool(s.Addr, "", 1, 0, nil)
	p.drain()

	_, err := p.WithWorker(func(w Worker) (interface{}, error) {
		return w.Do(Command{Verb: "PING"})
	})
	assert.Equal(t, ErrNoConnection, err)
}
