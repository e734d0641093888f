package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRoutingSignal(t *testing.T) {
	cases := map[string]bool{
		"MOVED 1234 host2:7002": true,
		"READONLY You can't write against a read only replica.": true,
		"CLUSTERDOWN Hash slot not served":                       true,
		"TRYAGAIN":                                               true,
		"NOSCRIPT No matching script":                            false,
		"WRONGTYPE Operation against a key":                      false,
		"":                                                       false,
	}
	for msg, want := range cases {
		assert.Equal(t, want, IsRoutingSignal(msg), msg)
	}
}

func TestIsNoScript(t *testing.T) {
	assert.True(t, IsNoScript("NOSCRIPT No matching script. Please use EVAL."))
	assert.False(t, IsNoScript("MOVED 1234 host:7002"))
}

func TestToken(t *testing.T) {
	assert.Equal(t, "MOVED", Token("MOVED 1234 host2:7002"))
	assert.Equal(t, "TRYAGAIN", Token("TRYAGAIN"))
}
