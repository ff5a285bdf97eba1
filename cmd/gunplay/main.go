package main

import "gunplay/internal/cli"

func main() {
	cli.Execute()
}
