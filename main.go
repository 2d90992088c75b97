package main

import "github.com/josephlewis42/vmsh/cmd"

func main() {
	cmd.Execute()
}
