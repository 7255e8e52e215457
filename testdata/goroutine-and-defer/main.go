// Package main spawns work through go and defer statements, which are call
// sites like any other.
package main

func worker() {}

func cleanup() {}

func idle() {}

func main() {
	defer cleanup()
	go worker()
}
