package main

import "github.com/chartflow/chartflow/cmd/chartflow/cmd"

func main() {
	cmd.Execute()
}
