package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/hollandale/creekrun/apps/creekctl/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "creekctl crashed: %v\n", r)
			if os.Getenv("CREEKRUN_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
