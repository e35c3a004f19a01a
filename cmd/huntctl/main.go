package main

import "github.com/buzzhunt/buzzhunt-api/internal/cli"

func main() {
	cli.Execute()
}
