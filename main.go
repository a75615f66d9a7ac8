package main

import "github.com/verid/facegate/cmd"

func main() {
	cmd.Execute()
}
