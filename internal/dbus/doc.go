// Package dbus exposes the overlay on the session bus as the
// io.github.jmylchreest.Overbar interface, provides the matching client used
// by the overbar CLI, and observes org.freedesktop.Notifications traffic so
// desktop notifications can be mirrored onto the bar.
package dbus
