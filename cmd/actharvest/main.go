// Command actharvest harvests normative acts from the federal registry.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/actharvest/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
