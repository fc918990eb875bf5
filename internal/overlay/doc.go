// Package overlay implements the status bar overlay's message queue and
// display state machine.
//
// Messages are posted into a FIFO queue and shown one at a time in a single
// display slot. A message with a duration is replaced by the next queued
// message when its timer fires; a finish or error message with nothing
// behind it hides the overlay. Immediate messages discard the queue and
// replace the current message at once.
//
// The state machine is single-threaded. Hosts drive it from their event
// loop and provide a Dispatcher so timer firings and render completions
// re-enter on that loop.
package overlay
