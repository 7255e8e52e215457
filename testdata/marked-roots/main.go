// Package main uses a root annotation for a function only generated glue
// code would ever call.
package main

//reachfunc:root // invoked from generated bindings
func hook() {
	hookHelper()
}

func hookHelper() {}

// orphan has no annotation and no caller.
func orphan() {}

func main() {}
