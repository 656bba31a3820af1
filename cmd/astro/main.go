package main

import "github.com/orbitalmachines/astrogator/internal/adapters/cli"

func main() {
	cli.Execute()
}
