// Package theme loads the CSS applied to the overlay bar. Themes are looked up
// in the user's themes directory first and then in the bundled set, with
// @import statements inlined and hot reload on file changes.
package theme
