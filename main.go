package main

import "formprobe/cmd"

func main() {
	cmd.Execute()
}
