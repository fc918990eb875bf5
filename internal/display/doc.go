// Package display renders the overlay bar with GTK4. A single layer-shell
// window is anchored to a screen edge; its content, geometry and reveal
// animation follow the frames produced by the overlay state machine.
package display
