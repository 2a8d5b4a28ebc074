// Package viz draws a running universe in the terminal.
//
// The gas grid is shown as a heat map of one [Layer] at a time, with bodies
// drawn on a braille [Canvas] laid over it. [Model] is the live Bubble Tea
// view; [RunInteractive] adds a preset menu in front of it. [Recorder] and
// [SVG] write the same layers to GIF and SVG files.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	N     - Single tick while paused
//	L     - Cycle heat map layers (shift for reverse)
//	T     - Cycle color themes
//	Tab   - Select a body
//	Arrows - Push the selected body (the gas under it recoils)
//	+/-   - Absorb gas into / release mass from the selected body
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
