package main

import "lexai/internal/cli"

func main() {
	cli.Execute()
}
