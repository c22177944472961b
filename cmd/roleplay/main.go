package main

import (
	"os"

	"github.com/megamake/roleplay/internal/app/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
