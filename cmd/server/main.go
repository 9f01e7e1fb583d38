package main

import "github.com/leca/ourstory/internal/cli"

func main() {
	cli.Execute()
}
