package main

import "food-console/cmd"

func main() {
	cmd.Execute()
}
