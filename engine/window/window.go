// Package window opens the glfw surface the renderer presents to and forwards the input the
// demo host reacts to.
package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the host surface of the renderer and the source of input events.
// All methods except Width, Height and IsRunning must be called from the thread that created it.
type Window interface {
	// SetUpdateCallback sets the function called on the window thread after each event poll.
	//
	// Parameters:
	//   - callback: function to call, or nil
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called with the new framebuffer size in pixels.
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the function called with the vertical scroll offset; positive
	// values scroll up.
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the function called on key press and repeat with a common.Key*
	// code. Escape closes the window and is not forwarded.
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetDragCallback sets the function called with the cursor delta in pixels while the left
	// button is held.
	SetDragCallback(callback func(dx, dy float32))

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// SurfaceDescriptor returns the descriptor the renderer creates its surface from.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform surface descriptor, or nil once closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Close destroys the window and terminates glfw.
	//
	// Returns:
	//   - error: an error if the window was already closed
	Close() error

	// ProcessMessages polls events until the window closes, calling the update callback after
	// each poll.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

// windowOptions is the creation state NewWindow starts from.
type windowOptions struct {
	title         string
	width, height int
	minW, minH    int
	maxW, maxH    int
}

func defaultWindowOptions() windowOptions {
	return windowOptions{
		title: "oxy meshlet",
		width: 1280, height: 720,
		minW: 320, minH: 240,
		maxW: 3840, maxH: 2160,
	}
}
