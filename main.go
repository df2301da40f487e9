// The main package for the domainscan executable.
package main

import (
	"github.com/JakeFAU/domainscan/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
