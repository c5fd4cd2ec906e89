package main

import "github.com/transit241/port-logistics/cmd"

func main() {
	cmd.Execute()
}
