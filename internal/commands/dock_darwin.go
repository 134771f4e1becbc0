//go:build darwin

package commands

// The dock icon is hidden while no window is open.
const showDockOnOpen = true
