package main

import "github.com/okhotin/agentgate/internal/cli"

func main() {
	cli.Execute()
}
