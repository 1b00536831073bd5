// Command eventbusd runs the Event Bus service.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/capfabric/cmd/eventbusd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
