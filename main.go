package main

import "github.com/lastned/lastned/cmd"

func main() {
	cmd.Execute()
}
