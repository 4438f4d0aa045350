// Package hash provides keyed hashing for short-lived credentials at rest.
package hash
