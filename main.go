// The main package for the storecrawl executable.
package main

import (
	"github.com/extwatch/storecrawl/cmd"
)

func main() {
	cmd.Execute()
}
