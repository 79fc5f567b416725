// Command dance scores live dance poses against recorded levels.
package main

import "github.com/banshee-data/dance.report/internal/cli"

func main() {
	cli.Main()
}
