package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is a glfw window without a client API; WebGPU owns presentation.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
type glfwWindow struct {
	win *glfw.Window

	// Framebuffer size in pixels.
	width  int
	height int

	dragging   bool
	lastCursor [2]float64

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onDrag    func(dx, dy float32)
}

var _ Window = &glfwWindow{}

// NewWindow initializes glfw on the calling thread, which stays locked to it, and shows a
// window. Failure to create the window panics.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
func NewWindow(options ...WindowBuilderOption) Window {
	o := defaultWindowOptions()
	for _, opt := range options {
		opt(&o)
	}
	w, err := openGLFW(o)
	if err != nil {
		panic(fmt.Sprintf("window: %v", err))
	}
	return w
}

func openGLFW(o windowOptions) (*glfwWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(o.width, o.height, o.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	win.SetSizeLimits(o.minW, o.minH, o.maxW, o.maxH)

	w := &glfwWindow{win: win}
	w.width, w.height = win.GetFramebufferSize()

	win.SetKeyCallback(w.key)
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})
	win.SetMouseButtonCallback(w.mouseButton)
	win.SetCursorPosCallback(w.cursor)
	// The surface is configured in pixels, which differ from screen coordinates on high-DPI
	// displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	return w, nil
}

func (w *glfwWindow) key(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	if key == glfw.KeyEscape {
		w.win.SetShouldClose(true)
		return
	}
	if w.onKeyDown != nil {
		w.onKeyDown(uint32(key))
	}
}

func (w *glfwWindow) mouseButton(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	w.dragging = action == glfw.Press
	w.lastCursor[0], w.lastCursor[1] = w.win.GetCursorPos()
}

func (w *glfwWindow) cursor(_ *glfw.Window, x, y float64) {
	if !w.dragging {
		return
	}
	dx, dy := x-w.lastCursor[0], y-w.lastCursor[1]
	w.lastCursor = [2]float64{x, y}
	if w.onDrag != nil {
		w.onDrag(float32(dx), float32(dy))
	}
}

func (w *glfwWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *glfwWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *glfwWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *glfwWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *glfwWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *glfwWindow) SetTitle(title string) {
	if w.win != nil {
		w.win.SetTitle(title)
	}
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.win == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

func (w *glfwWindow) IsRunning() bool {
	return w.win != nil && !w.win.ShouldClose()
}

func (w *glfwWindow) Close() error {
	if w.win == nil {
		return errors.New("window: already closed")
	}
	w.win.Destroy()
	w.win = nil
	glfw.Terminate()
	return nil
}

func (w *glfwWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			return
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *glfwWindow) Width() int {
	return w.width
}

func (w *glfwWindow) Height() int {
	return w.height
}
