// Package rcluster implements a routing client for a sharded in-memory
// key-value cluster: a fixed 16,384-slot keyspace split across primary
// nodes. Callers issue commands by cluster name without knowing which
// node owns which slot; the package discovers and caches the slot map,
// routes each command to the right node's connection pool, and
// transparently refreshes the map and retries the command when the
// cluster signals that the cache is stale (MOVED, CLUSTERDOWN, TRYAGAIN,
// READONLY) or a node is unreachable.
//
// Connecting
//
// Connect registers a cluster under a symbolic name:
//
//	_, err := rcluster.Connect(rcluster.Config{
//		ClusterName: "orders",
//		Nodes:       []rcluster.Addr{{Host: "10.0.0.1", Port: 7000}},
//		Size:        10,
//		MaxOverflow: 90,
//	})
//
// Several independently named clusters can be connected side by side; the
// package-level dispatcher functions (Q, QK, Qmn, Qa, ...) all take the
// cluster name as their first argument and look up the matching *Cluster
// in a process-wide registry.
//
// Routing
//
// Q extracts the routing key from a command (or pipeline) automatically
// and routes it to the owning node, retrying on transient routing errors
// up to Config.RequestTTL attempts:
//
//	reply, err := rcluster.Q("orders", rcluster.Pipeline{
//		{Verb: "GET", Args: []string{"order:42"}},
//	})
//
// QK routes with a caller-supplied key instead, for commands that have no
// extractable key (e.g. EVAL on a fixed script) or when the caller wants
// to force affinity. Qmn splits a pipeline whose commands span multiple
// slots across the right pools, runs each slot's bucket in parallel, and
// reassembles the results in the pipeline's original order.
//
// Higher-level helpers
//
// Transaction wraps a pipeline in MULTI/EXEC. OptimisticLockingTransaction
// implements the WATCH-based compare-and-swap pattern. EvalSha runs a
// cached script, loading it via SCRIPT LOAD and retrying once on
// NOSCRIPT. Qa fans a command out to every primary; FlushAll is Qa of
// FLUSHDB with an any-error-present collapse.
//
// What this package does not do
//
// It does not select a database other than 0, does not discover replicas
// for read scaling, does not follow ASK redirections (only MOVED and the
// cluster-down error class), and does not support cross-slot atomic
// transactions -- callers are responsible for slot affinity within a
// pipeline passed to Transaction.
package rcluster
