// Package config provides configuration structures and utilities for zipcrack.
// It defines the attack parameters, the isolation and encoding settings, and
// report generation preferences, and loads defaults from a .zipcrack file.
package config
