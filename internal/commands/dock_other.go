//go:build !darwin

package commands

const showDockOnOpen = false
