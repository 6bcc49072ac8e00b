package main

import "github.com/agentic-research/sqldirfs/cmd"

func main() {
	cmd.Execute()
}
