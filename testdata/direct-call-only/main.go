// Package main exercises plain direct calls with no function values anywhere.
package main

func format(name string) string {
	return "hello, " + name
}

func greet() {
	_ = format("world")
}

// farewell is never called.
func farewell() string {
	return "bye"
}

func main() {
	greet()
}
