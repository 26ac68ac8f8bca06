package main

import "intervia/cmd"

func main() {
	cmd.Execute()
}
