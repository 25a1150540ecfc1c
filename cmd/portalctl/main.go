// Command portalctl runs administrative account operations against the portal storage.
package main

import (
	"os"

	"infosec-portal/core"
)

func main() {
	os.Exit(execute(core.OpenAccountRepository, os.Args[1:]))
}
