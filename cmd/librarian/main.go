// Command librarian runs catalog, lending and fee operations from the
// circulation desk directly against the library database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
