package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/mwalimu/kazi/fs"
	"github.com/mwalimu/kazi/storage/database"
)

// gooseRunFunc is mockable.
var gooseRunFunc = func(command string, db *database.DB, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Run(command, db.DB.DB, "migrations", args...)
}

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, arguments...)
}
