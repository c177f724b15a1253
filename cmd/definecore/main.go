// Command definecore imports, edits and inspects the Define-XML metadata graph
// held in the configured store.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "definecore:", err)
		exitFunc(1)
	}
}
