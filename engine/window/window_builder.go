package window

import "github.com/Carmen-Shannon/oxy-trace/common"

// WindowBuilderOption configures a window before it is shown.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested framebuffer size. Empty extents are ignored.
//
// Parameters:
//   - extent: the initial size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(extent common.Extent) WindowBuilderOption {
	return func(w *engineWindow) {
		if extent.Empty() {
			return
		}
		w.width, w.height = int(extent.Width), int(extent.Height)
	}
}

// WithSizeLimits bounds user resizes. A zero dimension keeps the default for that bound.
//
// Parameters:
//   - minimum: the smallest allowed size
//   - maximum: the largest allowed size
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minimum, maximum common.Extent) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = common.Coalesce(int(minimum.Width), w.minWidth)
		w.minHeight = common.Coalesce(int(minimum.Height), w.minHeight)
		w.maxWidth = common.Coalesce(int(maximum.Width), w.maxWidth)
		w.maxHeight = common.Coalesce(int(maximum.Height), w.maxHeight)
	}
}
