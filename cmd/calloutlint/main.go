// Package main is the entry point for calloutlint.
package main

func main() {
	Execute()
}
