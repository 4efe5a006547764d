package main

import "github.com/KaramelBytes/tractmobility-cli/cmd"

func main() {
	cmd.Execute()
}
