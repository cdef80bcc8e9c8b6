// Package frame rasterizes a snapshot of bound values into an image.
//
// A Layout is plain data: a background color, a title and a list of
// horizontal bars with a label and a value text. The Renderer draws it with
// golang.org/x/image (vector paths for bars, opentype text for labels) and
// measures value strings with go-text/typesetting so they can be
// right-aligned.
//
// Colors are linear gputypes.Color values and are converted to sRGB when
// drawn.
package frame
