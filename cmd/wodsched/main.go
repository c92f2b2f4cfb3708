package main

import "github.com/example/wod-scheduler/cmd"

func main() {
	cmd.Execute()
}
