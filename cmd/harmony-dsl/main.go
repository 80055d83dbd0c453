// Command harmony-dsl validates Harmony configuration documents against the
// domain schemas, checks schema evolution and serves the validator over
// HTTP.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
