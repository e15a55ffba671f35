package main

import "github.com/Togather-Foundation/eventhub/cmd/eventhub/cmd"

func main() {
	cmd.Execute()
}
