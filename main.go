package main

import "github.com/samsaffron/line-llm/cmd"

func main() {
	cmd.Execute()
}
