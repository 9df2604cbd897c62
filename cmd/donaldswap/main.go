package main

import "github.com/bryanchriswhite/DonaldSwap/cmd/donaldswap/commands"

func main() {
	commands.Execute()
}
