package main

import "blac/cli"

func main() {
	cli.Execute()
}
