package main

import "github.com/hangarshare/cli/internal/cmd"

func main() {
	cmd.Execute()
}
