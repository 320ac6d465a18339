// Package wordlist provides the candidate source of an attack: a lazy,
// filterable stream of passwords read line by line from a wordlist file.
//
// A Source never holds the whole wordlist in memory. Each call to
// Candidates starts a fresh pass over the file, so the coordinator can count
// the candidates first and then stream them to the workers.
package wordlist
