package rcluster

import (
	"net"
	"strconv"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Default tuning constants, overridable per cluster via Config.
const (
	DefaultRequestTTL       = 16
	DefaultRetryDelay       = 100 * time.Millisecond
	DefaultOLTransactionTTL = 5
)

// Addr identifies one cluster node.
type Addr struct {
	Host string
	Port uint16
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// Config is the per-cluster configuration accepted by Connect.
type Config struct {
	// ClusterName identifies the cluster; it must be unique among
	// currently connected clusters.
	ClusterName string

	// Nodes are the init nodes tried, in order, for the first slot-map
	// fetch and as a fallback candidate list on later refreshes.
	// Multiple entries tolerate one node being down.
	Nodes []Addr

	// Password, if set, is sent via AUTH on every new worker connection.
	Password string

	// Size is the baseline worker count per primary (redigo's MaxIdle).
	Size int

	// MaxOverflow is the additional worker count a pool may grow to
	// under load (added to Size to form redigo's MaxActive).
	MaxOverflow int

	// DialOptions are passed through to every new worker connection and
	// to the monitor's own CLUSTER SLOTS connections.
	DialOptions []redis.DialOption

	// RequestTTL bounds the attempts per Q/QK/Qmn/Transaction call.
	// Zero means DefaultRequestTTL.
	RequestTTL int

	// RetryDelay is slept between attempts (not before the first retry
	// out of a cold-start refresh). Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// OLTransactionTTL bounds the CAS retries of
	// OptimisticLockingTransaction. Zero means DefaultOLTransactionTTL.
	OLTransactionTTL int
}

func (c Config) withDefaults() Config {
	if c.RequestTTL <= 0 {
		c.RequestTTL = DefaultRequestTTL
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.OLTransactionTTL <= 0 {
		c.OLTransactionTTL = DefaultOLTransactionTTL
	}
	return c
}
