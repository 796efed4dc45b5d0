package main

import "github.com/example/lawstudy/cmd"

func main() {
	cmd.Execute()
}
