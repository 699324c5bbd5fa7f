// Command dipbuyer buys cryptocurrency on a schedule and on price dips for
// every account stored in its database.
//
// Usage:
//
//	dipbuyer run --config config.yaml
//	dipbuyer accounts import --file accounts.yaml
//	dipbuyer orders list --account alice
package main

import (
	"os"

	"github.com/vadiminshakov/dipbuyer/cmd/cli"
)

func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
