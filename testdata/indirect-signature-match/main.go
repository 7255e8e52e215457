// Package main exercises a call through a function variable. The target is
// unknown statically, so every function matching the called type counts.
package main

var op func(int) int

func inc(x int) int {
	return x + 1
}

func dec(x int) int {
	return x - 1
}

// shout has a different signature and must stay out of the candidate set.
func shout(s string) string {
	return s + "!"
}

func main() {
	_ = op(3)
}
