package main

import "carechain/cli/cmd"

func main() {
	cmd.Execute()
}
