package main

import "finrisk/cmd"

func main() {
	cmd.Execute()
}
