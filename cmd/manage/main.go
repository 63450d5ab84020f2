// Command manage runs administrative tasks against the recipe database:
//
//	manage migrate
//	manage createsuperuser --email admin@example.com
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
