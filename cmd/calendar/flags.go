package main

import "github.com/urfave/cli/v2"

const (
	configFlagName      = "config"
	emailFlagName       = "email"
	passwordFlagName    = "password"
	displayNameFlagName = "display-name"
	adminFlagName       = "admin"
	timezoneFlagName    = "timezone"
)

var (
	configFlag = &cli.StringFlag{
		Name:    configFlagName,
		Usage:   "optional YAML, TOML or JSON config file; CALENDAR_* variables take precedence",
		EnvVars: []string{"CALENDAR_CONFIG"},
	}
	emailFlag = &cli.StringFlag{
		Name:     emailFlagName,
		Usage:    "login email of the new account",
		Required: true,
	}
	passwordFlag = &cli.StringFlag{
		Name:     passwordFlagName,
		Usage:    "initial password of the new account",
		EnvVars:  []string{"CALENDAR_NEW_USER_PASSWORD"},
		Required: true,
	}
	displayNameFlag = &cli.StringFlag{
		Name:  displayNameFlagName,
		Usage: "name shown in the calendar, defaults to the email",
	}
	adminFlag = &cli.BoolFlag{
		Name:  adminFlagName,
		Usage: "grant administrator rights",
	}
	timezoneFlag = &cli.StringFlag{
		Name:  timezoneFlagName,
		Usage: "IANA timezone the user views the calendar in",
		Value: "UTC",
	}
)
