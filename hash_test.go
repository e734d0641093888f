package rcluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotOf(t *testing.T) {
	cases := []struct {
		in  string
		out uint16
	}{
		{"", 0},
		{"a", 15495},
		{"b", 3300},
		{"ab", 13567},
		{"abc", 7638},
		{"a{b}", 3300},
		{"{a}b", 15495},
		{"{a}{b}", 15495},
		{"{}{a}{b}", 11267},
		{"a{b}c", 3300},
		{"{a}bc", 15495},
		{"{a}{b}{c}", 15495},
		{"{}{a}{b}{c}", 1044},
		{"a{bc}d", 12685},
		{"a{bcd}", 1872},
		{"{abcd}", 10294},
		{"abcd", 10294},
		{"{a", 10276},
		{"a}", 5921},
		{"123456789", 12739},
		{"foo", 12182},
		{"{foo}bar", 12182},
	}

	for _, c := range cases {
		assert.Equal(t, c.out, SlotOf(c.in), c.in)
	}
}

func TestSlotOfInRange(t *testing.T) {
	for _, k := range []string{"x", "hello world", "{tag}rest", "a{b}c{d}", ""} {
		slot := SlotOf(k)
		assert.True(t, slot < hashSlots, "slot %d out of range for %q", slot, k)
	}
}

func TestSlotOfHashTagEquivalence(t *testing.T) {
	a, b := "alpha", "beta"
	want := SlotOf(a)
	assert.Equal(t, want, SlotOf("x{"+a+"}y"))
	assert.Equal(t, want, SlotOf("{"+a+"}"))
	assert.Equal(t, want, SlotOf("p{"+a+"}q{"+b+"}"))
}

func TestSlotOfEmptyTagFallsBackToWholeKey(t *testing.T) {
	assert.Equal(t, crc16("{}key")%hashSlots, SlotOf("{}key"))
}

func TestSlotOfNoTagMismatch(t *testing.T) {
	// "foo}{bar" has no valid tag (no '{' before the '}'), so it is
	// hashed as a whole string and must not collide with "foo".
	assert.NotEqual(t, SlotOf("foo"), SlotOf("foo}{bar"))
}
