// Package main has two disjoint call trees so the --entry override can be
// verified per configuration.
package main

func start() {
	serve()
}

func serve() {}

func status() string {
	return "ok"
}

func main() {
	_ = status()
}
