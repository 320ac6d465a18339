// Package progress renders the attack counters as a terminal progress bar.
package progress
