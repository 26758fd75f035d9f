package main

import (
	"github.com/urfave/cli"
)

// App returns the sftpup application object.
func App() *cli.App {
	app := cli.NewApp()
	app.Name = "sftpup"
	app.Usage = "upload files and directories to a SFTP server, recreating the local structure"
	app.Version = Version
	app.Commands = []cli.Command{
		uploadCommand(),
	}
	app.Flags = GlobalFlags()
	return app
}

// GlobalFlags returns the global flags for sftpup.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "loglevel",
			Usage: "logging level",
			Value: "info",
		},
	}
}
