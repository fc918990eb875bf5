// Package daemon wires the overlay state machine to the outside world for
// overbard. It carries D-Bus requests onto the GTK loop, mirrors desktop
// notifications, surfaces internal errors on the bar itself and reloads
// configuration when the file changes.
package daemon
