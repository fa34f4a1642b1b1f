package main

import "github.com/KaramelBytes/quickeda-cli/cmd"

func main() {
	cmd.Execute()
}
