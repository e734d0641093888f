package rcluster

import (
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
)

// workerPool is a bounded pool of Workers for one primary node, backed by
// a redigo redis.Pool: size maps to MaxIdle, size+maxOverflow maps to
// MaxActive. It implements the with_worker(fn) contract of §4.C: borrow
// blocks until a worker is available or the pool is at capacity, in which
// case it fails fast with ErrNoConnection rather than blocking
// indefinitely.
type workerPool struct {
	addr        string
	password    string
	size        int
	maxOverflow int
	dialOpts    []redis.DialOption

	mu                   sync.Mutex
	pool                 *redis.Pool
	lastReconnectVersion uint64
}

func newWorkerPool(addr, password string, size, maxOverflow int, dialOpts []redis.DialOption) *workerPool {
	p := &workerPool{
		addr:        addr,
		password:    password,
		size:        size,
		maxOverflow: maxOverflow,
		dialOpts:    dialOpts,
	}
	p.pool = p.buildRedigoPool()
	return p
}

func (p *workerPool) buildRedigoPool() *redis.Pool {
	opts := p.dialOpts
	if p.password != "" {
		opts = append(append([]redis.DialOption{}, p.dialOpts...), redis.DialPassword(p.password))
	}
	addr := p.addr

	return &redis.Pool{
		MaxIdle:     p.size,
		MaxActive:   p.size + p.maxOverflow,
		Wait:        false,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
}

func (p *workerPool) redigoPool() *redis.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool
}

// WithWorker borrows a worker, runs fn against it, and always releases
// the worker afterward -- even if fn panics -- so a panicking caller
// never leaks a connection.
func (p *workerPool) WithWorker(fn func(Worker) (interface{}, error)) (interface{}, error) {
	pool := p.redigoPool()
	conn := pool.Get()
	if err := conn.Err(); err != nil {
		conn.Close()
		return nil, ErrNoConnection
	}
	defer conn.Close()

	return fn(&redigoWorker{conn: conn})
}

// reconnectAll is the best-effort recycle signal of §4.C: it replaces the
// underlying redigo pool with a fresh one so that subsequent acquisitions
// redial addr, and lets the old pool's connections drain in the
// background. Concurrent calls carrying the same observedVersion collapse
// into a single reconnect.
func (p *workerPool) reconnectAll(observedVersion uint64) {
	p.mu.Lock()
	if observedVersion != 0 && observedVersion <= p.lastReconnectVersion {
		p.mu.Unlock()
		return
	}
	old := p.pool
	p.pool = p.buildRedigoPool()
	p.lastReconnectVersion = observedVersion
	p.mu.Unlock()

	go old.Close()
}

// drain closes the pool for good. It is called once a rebuild removes
// addr from the cluster's snapshot entirely.
func (p *workerPool) drain() {
	p.redigoPool().Close()
}
