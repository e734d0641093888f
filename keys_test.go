package rcluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyOfSingleCommand(t *testing.T) {
	key, ok := KeyOf(Pipeline{{Verb: "GET", Args: []string{"foo"}}})
	assert.True(t, ok)
	assert.Equal(t, "foo", key)
}

func TestKeyOfCaseInsensitiveVerb(t *testing.T) {
	key, ok := KeyOf(Pipeline{{Verb: "get", Args: []string{"foo"}}})
	assert.True(t, ok)
	assert.Equal(t, "foo", key)
}

func TestKeyOfUnroutableVerbs(t *testing.T) {
	for _, verb := range []string{"INFO", "CONFIG", "SHUTDOWN", "SLAVEOF"} {
		_, ok := KeyOf(Pipeline{{Verb: verb, Args: []string{"x"}}})
		assert.False(t, ok, verb)
	}
}

func TestKeyOfNoArgs(t *testing.T) {
	_, ok := KeyOf(Pipeline{{Verb: "PING"}})
	assert.False(t, ok)
}

func TestKeyOfEval(t *testing.T) {
	key, ok := KeyOf(Pipeline{{Verb: "EVAL", Args: []string{"return 1", "1", "thekey"}}})
	assert.True(t, ok)
	assert.Equal(t, "thekey", key)
}

func TestKeyOfEvalShaMissingKey(t *testing.T) {
	_, ok := KeyOf(Pipeline{{Verb: "EVALSHA", Args: []string{"sha1", "0"}}})
	assert.False(t, ok)
}

func TestKeyOfMultiPrefix(t *testing.T) {
	key, ok := KeyOf(Pipeline{
		{Verb: "MULTI"},
		{Verb: "SET", Args: []string{"a", "1"}},
		{Verb: "SET", Args: []string{"a", "2"}},
	})
	assert.True(t, ok)
	assert.Equal(t, "a", key)
}

func TestKeyOfMultiCommandPipelineUsesFirst(t *testing.T) {
	key, ok := KeyOf(Pipeline{
		{Verb: "GET", Args: []string{"a"}},
		{Verb: "GET", Args: []string{"b"}},
	})
	assert.True(t, ok)
	assert.Equal(t, "a", key)
}

func TestKeyOfEmptyPipeline(t *testing.T) {
	_, ok := KeyOf(nil)
	assert.False(t, ok)
}
