package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashParts(t *testing.T) {
	a := HashParts("rf", "salary=0|tenure=3")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashParts("rf", "salary=0|tenure=3"))
	assert.NotEqual(t, a, HashParts("lr", "salary=0|tenure=3"))
	assert.NotEqual(t, HashParts("ab", "c"), HashParts("a", "bc"))
}
