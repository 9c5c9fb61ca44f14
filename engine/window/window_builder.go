package window

import "github.com/Carmen-Shannon/oxy-meshlet/engine/config"

// WindowBuilderOption configures a window before it is created.
type WindowBuilderOption func(o *windowOptions)

// WithTitle sets the title bar text.
//
// Parameters:
//   - title: the window title
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(o *windowOptions) {
		if title != "" {
			o.title = title
		}
	}
}

// WithSize sets the requested size in screen coordinates, clamped to the resize limits.
// Non-positive values keep the default.
func WithSize(width, height int) WindowBuilderOption {
	return func(o *windowOptions) {
		if width > 0 {
			o.width = min(max(width, o.minW), o.maxW)
		}
		if height > 0 {
			o.height = min(max(height, o.minH), o.maxH)
		}
	}
}

// WithSettings applies the window section of a settings file.
func WithSettings(s config.WindowSettings) WindowBuilderOption {
	return func(o *windowOptions) {
		WithTitle(s.Title)(o)
		WithSize(s.Width, s.Height)(o)
	}
}
