package main

import "github.com/codetldr/tldr/internal/cli"

func main() {
	cli.Execute()
}
