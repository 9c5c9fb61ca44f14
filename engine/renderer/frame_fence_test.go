package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameFences(t *testing.T) {
	var f frameFences
	assert.False(t, f.busy(3), "slots grow on demand")

	done := f.arm(1)
	assert.True(t, f.busy(1))
	assert.False(t, f.busy(0))

	polls := f.wait(1, func() {
		if !f.busy(0) {
			done()
		}
	})
	assert.Equal(t, 1, polls)
	assert.False(t, f.busy(1))
	assert.Equal(t, 0, f.wait(1, func() { t.Fatal("free slot polled") }))

	f.arm(0)
	f.arm(2)
	f.reset()
	assert.False(t, f.busy(0))
	assert.False(t, f.busy(2))
}
