// Package main is the entry point for the nightscout-fpu command
package main

import "github.com/mrcode/nightscout-fpu/internal/cli"

func main() {
	cli.Execute()
}
