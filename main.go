package main

import "elite-starscan/cmd"

var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
