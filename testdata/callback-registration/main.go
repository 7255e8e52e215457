// Package main exercises the callback pattern: onEvent is only ever passed
// as an argument, never called by name.
package main

var callbacks []func()

func register(cb func()) {
	callbacks = append(callbacks, cb)
}

func onEvent() {
	logEvent()
}

func logEvent() {}

// onShutdown is declared but never registered or called.
func onShutdown() {}

func main() {
	register(onEvent)
}
