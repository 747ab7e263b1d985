package main

import system "os"

func main() {
	system.Exit(1) // want "avoid using os.Exit in main.main"
}
