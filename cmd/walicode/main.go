package main

import "github.com/jmcleod/walicode/cmd/walicode/cmd"

func main() {
	cmd.Execute()
}
