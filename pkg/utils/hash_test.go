package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", HashKey(""))
	assert.Equal(t, HashKey("Zephyr", "hola"), HashKey("Zephyr", "hola"))
	assert.NotEqual(t, HashKey("Zephyr", "hola"), HashKey("Kore", "hola"))
	assert.Len(t, HashKey("a", "b"), 32)
}
