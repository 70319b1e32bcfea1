package main

import "github.com/rustyeddy/simcube/internal/cli"

func main() {
	cli.Execute()
}
