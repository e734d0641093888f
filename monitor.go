package rcluster

import (
	"errors"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gomodule/redigo/redis"
)

// Cluster is the per-cluster runtime: the slot-map monitor plus the set
// of worker pools for the cluster's primaries. One Cluster exists per
// symbolic cluster name; it is created by Connect and looked up by the
// package-level dispatcher functions (Q, QK, Qmn, Qa, ...) via Lookup.
type Cluster struct {
	name string
	cfg  Config

	current atomic.Pointer[snapshot]

	refreshMu   sync.Mutex
	refreshing  bool
	refreshDone chan struct{}

	poolsMu sync.Mutex
	pools   map[string]*workerPool // address -> pool
}

func newCluster(cfg Config) *Cluster {
	return &Cluster{name: cfg.ClusterName, cfg: cfg, pools: make(map[string]*workerPool)}
}

// Connect creates the cluster state for cfg.ClusterName, registers it
// under that name, and attempts an initial slot-map fetch from
// cfg.Nodes. If every node fails to respond, the cluster is still
// registered with no snapshot; requests against it retry-until-TTL,
// triggering further refreshes, until one eventually succeeds.
func Connect(cfg Config) (*Cluster, error) {
	cfg = cfg.withDefaults()
	if cfg.ClusterName == "" {
		return nil, errors.New("rcluster: ClusterName is required")
	}
	if len(cfg.Nodes) == 0 {
		return nil, errors.New("rcluster: at least one node is required")
	}

	c := newCluster(cfg)
	if err := registerCluster(c); err != nil {
		return nil, err
	}

	if err := c.Refresh(0); err != nil {
		log.Printf("rcluster: cluster %q: initial refresh failed: %v", cfg.ClusterName, err)
	}

	return c, nil
}

// State returns the cluster's current immutable snapshot, or nil if no
// slot map has been fetched yet.
func (c *Cluster) State() *snapshot {
	return c.current.Load()
}

// PoolForSlot returns the pool address owning slot and the snapshot
// version it was read from. ok is false iff the cluster has no snapshot
// yet; callers use that to trigger a refresh on cold start.
func (c *Cluster) PoolForSlot(slot uint16) (addr string, version uint64, ok bool) {
	s := c.State()
	if s == nil {
		return "", 0, false
	}
	return s.slotMap[slot], s.version, true
}

// AllPools returns the addresses of every pool in the current snapshot,
// for fan-out operations. It returns nil if there is no snapshot yet.
func (c *Cluster) AllPools() []string {
	s := c.State()
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.pools))
	for addr := range s.pools {
		out = append(out, addr)
	}
	return out
}

func (c *Cluster) pool(addr string) *workerPool {
	c.poolsMu.Lock()
	defer c.poolsMu.Unlock()
	return c.pools[addr]
}

// Refresh rebuilds the slot map, unless observedVersion is already
// behind the version some other caller has published since it was read,
// in which case the call is a no-op. Refreshes are serialized per
// cluster: a concurrent caller waits for the in-flight rebuild to finish
// rather than starting a second one.
func (c *Cluster) Refresh(observedVersion uint64) error {
	c.refreshMu.Lock()
	if s := c.State(); s != nil && s.version > observedVersion {
		c.refreshMu.Unlock()
		return nil
	}
	if c.refreshing {
		done := c.refreshDone
		c.refreshMu.Unlock()
		<-done
		return nil
	}
	c.refreshing = true
	c.refreshDone = make(chan struct{})
	c.refreshMu.Unlock()

	err := c.rebuild()

	c.refreshMu.Lock()
	c.refreshing = false
	close(c.refreshDone)
	c.refreshMu.Unlock()

	return err
}

func (c *Cluster) rebuild() error {
	for _, addr := range c.candidateAddrs() {
		slots, err := c.fetchSlots(addr)
		if err != nil {
			continue
		}
		c.publish(slots)
		return nil
	}

	log.Printf("rcluster: cluster %q: all nodes failed to answer CLUSTER SLOTS", c.name)
	return errAllNodesFailed
}

// candidateAddrs orders the nodes to try for a slot-map fetch: the
// current snapshot's pool addresses first (the common case is a small
// topology change), falling back to the configured init nodes.
func (c *Cluster) candidateAddrs() []string {
	seen := make(map[string]bool)
	var addrs []string

	if s := c.State(); s != nil {
		for addr := range s.pools {
			if !seen[addr] {
				addrs = append(addrs, addr)
				seen[addr] = true
			}
		}
	}
	for _, n := range c.cfg.Nodes {
		addr := n.String()
		if !seen[addr] {
			addrs = append(addrs, addr)
			seen[addr] = true
		}
	}
	return addrs
}

type slotRange struct {
	lo, hi  int
	primary string
}

// fetchSlots issues CLUSTER SLOTS on addr and parses the reply. It uses a
// raw, unpooled connection rather than going through a worker pool or the
// dispatcher: the monitor must be able to talk to a candidate node even
// when no pool for it exists yet, and it must never recurse through the
// slot-routing machinery it is itself responsible for maintaining.
func (c *Cluster) fetchSlots(addr string) ([]slotRange, error) {
	conn, err := redis.Dial("tcp", addr, c.cfg.DialOptions...)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if c.cfg.Password != "" {
		if _, err := conn.Do("AUTH", c.cfg.Password); err != nil {
			return nil, err
		}
	}

	vals, err := redis.Values(conn.Do("CLUSTER", "SLOTS"))
	if err != nil {
		return nil, err
	}

	out := make([]slotRange, 0, len(vals))
	for len(vals) > 0 {
		var one []interface{}
		vals, err = redis.Scan(vals, &one)
		if err != nil {
			return nil, err
		}

		var lo, hi int
		var nodes []interface{}
		if _, err = redis.Scan(one, &lo, &hi, &nodes); err != nil {
			return nil, err
		}

		var primary string
		for len(nodes) > 0 {
			var host string
			var port int
			nodes, err = redis.Scan(nodes, &host, &port)
			if err != nil {
				return nil, err
			}
			if primary == "" {
				primary = net.JoinHostPort(host, strconv.Itoa(port))
			}
			// replica addresses are intentionally not tracked: no
			// client-side read-scaling support.
		}
		if primary != "" {
			out = append(out, slotRange{lo: lo, hi: hi, primary: primary})
		}
	}
	return out, nil
}

// publish reconciles slots against the existing pool set, builds the new
// slot array, and atomically swaps in the resulting snapshot, then
// drains any pool whose address no longer appears.
func (c *Cluster) publish(slots []slotRange) {
	var prevVersion uint64
	if prev := c.State(); prev != nil {
		prevVersion = prev.version
	}

	next := newSnapshot(prevVersion + 1)

	c.poolsMu.Lock()
	seen := make(map[string]bool, len(slots))
	for _, sr := range slots {
		seen[sr.primary] = true
		if _, ok := c.pools[sr.primary]; !ok {
			c.pools[sr.primary] = newWorkerPool(sr.primary, c.cfg.Password, c.cfg.Size, c.cfg.MaxOverflow, c.cfg.DialOptions)
		}
		for slot := sr.lo; slot <= sr.hi; slot++ {
			next.slotMap[slot] = sr.primary
		}
		next.pools[sr.primary] = struct{}{}
	}

	var evicted []*workerPool
	for addr, p := range c.pools {
		if !seen[addr] {
			evicted = append(evicted, p)
			delete(c.pools, addr)
		}
	}
	c.poolsMu.Unlock()

	c.current.Store(next)

	for _, p := range evicted {
		p.drain()
	}
}

// close drains every worker pool the cluster owns. Called by Disconnect.
func (c *Cluster) close() {
	c.poolsMu.Lock()
	pools := make([]*workerPool, 0, len(c.pools))
	for _, p := range c.pools {
		pools = append(pools, p)
	}
	c.pools = make(map[string]*workerPool)
	c.poolsMu.Unlock()

	for _, p := range pools {
		p.drain()
	}
}
