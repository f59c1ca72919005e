package main

import "livecode/cmd"

func main() {
	cmd.Execute()
}
