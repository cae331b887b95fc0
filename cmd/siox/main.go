package main

import "github.com/Fepozopo/siox/pkg/cli"

func main() {
	cli.RunCLI()
}
