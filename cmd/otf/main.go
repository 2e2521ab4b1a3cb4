package main

import "github.com/OpenTraceLab/OpenTraceFab/cmd/otf/cmd"

func main() {
	cmd.Execute()
}
