package main

import (
	"os"

	"github.com/awnumar/memguard"
	"github.com/urfave/cli"
)

func main() {
	app := App()
	cli.OsExiter = func(code int) {
		_ = os.Stdout.Sync()
		_ = os.Stderr.Sync()
		memguard.DestroyAll()
		if code != 0 {
			os.Exit(code)
		}
	}
	_ = app.Run(os.Args)
	cli.OsExiter(0)
}
