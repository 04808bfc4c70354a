package main

import "vantage/cmd/vantage/cmd"

func main() {
	cmd.Execute()
}
