package rcluster

import (
	"testing"

	"github.com/shardkv/rcluster/redistest"
	"github.com/shardkv/rcluster/redistest/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistryKeepsClustersIndependent verifies two clusters registered
// under different names route independently: a command against one
// never reaches the other's mock server.
func TestRegistryKeepsClustersIndependent(t *testing.T) {
	var aHits, bHits int

	ca, sa := singlePoolCluster(t, "cluster-a", func(cmd string, args ...string) interface{} {
		aHits++
		return resp.BulkString("a-reply")
	})
	defer sa.Close()
	defer Disconnect(ca.name)

	cb, sb := singlePoolCluster(t, "cluster-b", func(cmd string, args ...string) interface{} {
		bHits++
		return resp.BulkString("b-reply")
	})
	defer sb.Close()
	defer Disconnect(cb.name)

	resA, err := Q("cluster-a", Pipeline{{Verb: "GET", Args: []string{"k"}}})
	require.NoError(t, err)
	assert.Equal(t, []byte("a-reply"), resA)

	resB, err := Q("cluster-b", Pipeline{{Verb: "GET", Args: []string{"k"}}})
	require.NoError(t, err)
	assert.Equal(t, []byte("b-reply"), resB)

	assert.Equal(t, 1, aHits)
	assert.Equal(t, 1, bHits)
}

func TestConnectRejectsDuplicateClusterName(t *testing.T) {
	s := redistest.StartMockServer(t, func(cmd string, args ...string) interface{} {
		return resp.OK{}
	})
	defer s.Close()

	cfg := Config{ClusterName: "dup-test", Nodes: []Addr{mustParseAddr(s2Addr(s))}}
	_, err := Connect(cfg)
	require.NoError(t, err)
	defer Disconnect("dup-test")

	_, err = Connect(cfg)
	assert.Equal(t, ErrClusterNameTaken, err)
}

func TestLookupUnknownCluster(t *testing.T) {
	_, err := Lookup("never-connected")
	assert.Equal(t, ErrUnknownCluster, err)
}
