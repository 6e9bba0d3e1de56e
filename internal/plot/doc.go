// Package plot renders sampled functions as line charts with go-chart.
//
// Each call to Renderer.Render draws into a Canvas taken from a pool and
// released before Render returns, on success and on failure alike.
// OpenCanvases reports how many canvases are currently held, which is zero
// whenever no render is in progress.
//
// The chart layout is fixed: the curve in blue with width 2, black reference
// lines through the origin, a light dashed grid, a title, axis names and a
// legend with the curve's label. Non-finite samples split the curve into
// separate segments instead of being drawn.
package plot
