package main

import (
	"sheet-probe/internal/cli"
)

func main() {
	cli.Execute()
}
