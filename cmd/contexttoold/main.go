// Command contexttoold runs the Context/Tool service.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/capfabric/cmd/contexttoold/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
