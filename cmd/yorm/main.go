// Command yorm initializes, checks, and migrates databases used through the
// yorm record mapper.
package main

import "github.com/mesh-intelligence/yorm/internal/cli"

func main() {
	cli.Execute()
}
