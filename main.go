package main

import "github.com/Mohsinsiddi/copytrader/cmd"

func main() {
	cmd.Execute()
}
