package main

import "github.com/wezaxy/dmagent/cmd"

func main() {
	cmd.Execute()
}
