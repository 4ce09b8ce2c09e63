package sliceutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	input := []int{1, 2, 3, 4, 5}
	expected := []int{1, 4, 9, 16, 25}

	result := Map(input, func(x int) int {
		return x * x
	})

	assert.Equal(t, expected, result)
}

func TestCount(t *testing.T) {
	input := []string{"a", "b", "a", "c", "a"}

	assert.Equal(t, 3, Count(input, func(s string) bool { return s == "a" }))
	assert.Equal(t, 0, Count(input, func(s string) bool { return s == "z" }))
	assert.Equal(t, 0, Count([]string(nil), func(string) bool { return true }))
}
