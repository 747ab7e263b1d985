package main

import "os"

type exiter struct{}

func (exiter) Exit(int) {}

func main() {
	defer func() {
		os.Exit(0)
	}()

	var e exiter
	e.Exit(1)
}
