package main

import "github.com/brogergvhs/chapterdl/cmd"

func main() {
	cmd.Execute()
}
