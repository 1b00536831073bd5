// Command registryd runs the Discovery Registry service.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/capfabric/cmd/registryd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
