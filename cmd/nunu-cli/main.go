package main

import "nunu-cli/cmd"

func main() {
	cmd.Execute()
}
