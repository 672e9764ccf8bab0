package main

import "github.com/mailpouch/mailpouch/internal/cli"

func main() {
	cli.Execute()
}
