package main

import "fwpanel/cmd"

func main() {
	cmd.Execute()
}
