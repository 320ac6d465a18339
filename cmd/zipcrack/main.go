// Package main provides the entry point for the zipcrack CLI.
//
// zipcrack recovers the password of an encrypted ZIP or RAR archive by
// trying every line of a wordlist.
//
// Usage:
//
//	zipcrack crack -f <archive> -w <wordlist>
//	zipcrack crack -f <archive> -w <wordlist> -l 6 -t 8
//	zipcrack history
//
// See --help for all available options.
package main

// main is the entry point for zipcrack.
func main() {
	Execute()
}
