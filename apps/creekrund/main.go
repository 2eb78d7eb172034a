package main

import "github.com/hollandale/creekrun/apps/creekrund/cmd"

func main() {
	cmd.Execute()
}
