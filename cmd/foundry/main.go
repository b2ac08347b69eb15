package main

import "github.com/foundrylabs/foundry-go/internal/cli"

func main() {
	cli.Execute()
}
