// Package discovery tracks which rooms have been drafted and which items
// have been picked up during a run, and reports each one the first time it
// happens.
package discovery
