package resource

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

const countsUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc | wgpu.BufferUsageIndirect

func TestStatePermits(t *testing.T) {
	tests := []struct {
		state State
		usage wgpu.BufferUsage
		want  bool
	}{
		{StateCommon, 0, true},
		{StateCopyDest, wgpu.BufferUsageCopyDst, true},
		{StateCopyDest, wgpu.BufferUsageStorage, false},
		{StateCopySource, wgpu.BufferUsageCopySrc | wgpu.BufferUsageMapWrite, true},
		{StateShaderWrite, wgpu.BufferUsageStorage, true},
		{StateShaderRead, wgpu.BufferUsageUniform, false},
		{StateIndirectArgument, countsUsage, true},
		{StateIndirectArgument, wgpu.BufferUsageStorage, false},
		{StateUniform, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Permits(tt.usage), "%s with %#x", tt.state, uint64(tt.usage))
	}
}

func TestTransitionSequence(t *testing.T) {
	b := NewBuffer("counts", 48, countsUsage, StateShaderWrite, nil)

	b.Transition(StateShaderWrite, StateCopyDest)
	b.Transition(StateCopyDest, StateShaderWrite)
	b.Transition(StateShaderWrite, StateIndirectArgument)
	b.Transition(StateIndirectArgument, StateCopySource)
	b.Transition(StateCopySource, StateShaderWrite)
	assert.Equal(t, StateShaderWrite, b.State())
}

func TestTransitionRejectsOutOfOrder(t *testing.T) {
	b := NewBuffer("counts", 48, countsUsage, StateShaderWrite, nil)

	assert.PanicsWithValue(t,
		`resource: buffer "counts" transition copy_dest -> shader_write, but it is in state shader_write`,
		func() { b.Transition(StateCopyDest, StateShaderWrite) })
	assert.Equal(t, StateShaderWrite, b.State(), "a rejected transition leaves the state alone")
}

func TestTransitionRejectsMissingUsage(t *testing.T) {
	b := NewBuffer("positions", 64, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, StateShaderRead, nil)
	assert.Panics(t, func() { b.Transition(StateShaderRead, StateIndirectArgument) })
	assert.Panics(t, func() { NewBuffer("uniforms", 64, wgpu.BufferUsageStorage, StateUniform, nil) })
}

func TestRequire(t *testing.T) {
	b := NewBuffer("args", 32, countsUsage, StateIndirectArgument, nil)
	assert.NotPanics(t, func() { b.Require(StateIndirectArgument) })
	assert.Panics(t, func() { b.Require(StateShaderWrite) })
}

func TestReleaseIdempotent(t *testing.T) {
	b := NewBuffer("commands", 32, countsUsage, StateIndirectArgument, nil)
	b.Release()
	assert.True(t, b.Released())
	assert.Nil(t, b.Handle())
	assert.NotPanics(t, b.Release)
	assert.Equal(t, "released", b.State().String())
	assert.Panics(t, func() { b.Transition(StateIndirectArgument, StateShaderWrite) })
}

func TestAllocationSize(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 16},
		{1, 16},
		{17, 20},
		{48, 48},
		{1001, 1004},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllocationSize(tt.in), "size %d", tt.in)
	}
}
