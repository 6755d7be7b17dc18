package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "calendar"
	app.Usage = "meeting calendar booking server"
	app.Version = Version
	app.Flags = []cli.Flag{configFlag}
	app.Commands = append(app.Commands,
		&serveCommand,
		&migrateCommand,
		&createUserCommand,
	)
	return app
}

var (
	serveCommand = cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API",
		Action: serveAction,
	}
	migrateCommand = cli.Command{
		Name:   "migrate",
		Usage:  "Apply pending schema migrations and exit",
		Action: migrateAction,
	}
	createUserCommand = cli.Command{
		Name:   "create-user",
		Usage:  "Create a login account",
		Flags:  []cli.Flag{emailFlag, passwordFlag, displayNameFlag, adminFlag, timezoneFlag},
		Action: createUserAction,
	}
)
