// Package main holds a call cycle that no path from main ever enters.
package main

func ping() {
	pong()
}

func pong() {
	ping()
}

func main() {}
