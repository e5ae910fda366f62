package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLease(t *testing.T) {
	before := Leased()

	a := GetAllocator()
	require.NotNil(t, a)
	buf := a.Allocate(64)
	assert.Len(t, buf, 64)
	a.Free(buf)
	assert.Equal(t, before+1, Leased())

	PutAllocator(a)
	PutAllocator(nil)
	assert.Equal(t, before, Leased())
}
