package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
	"github.com/mwalimu/kazi/storage/database"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *database.DB
	usrSvc  *user.Service
	escSvc  *escalation.Service
	dcSvc   *dayclose.Service
	winRepo dayclose.WindowRepository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run DB migrations (goose commands)")
	fmt.Println("  adduser -name NAME -username USERNAME -email EMAIL [-role ROLE] [-supervisor ID] - create a user")
	fmt.Println("  seedwindows -type TYPE -open HH:MM -close HH:MM -cstart HH:MM -cend HH:MM - set a user type's day windows")
	fmt.Println("  bypass -on|-off -actor ID - toggle the day-close window bypass")
	fmt.Println("  override -user ID -on|-off -actor ID - toggle a user's escalation pause override")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleStaff, "The user's role.")
	addUserSupervisor := addUserCmd.String("supervisor", "", "The supervisor's user ID.")

	seedWindowsCmd := flag.NewFlagSet("seedwindows", flag.ExitOnError)
	seedWindowsType := seedWindowsCmd.String("type", "", "The user type the windows apply to.")
	seedWindowsOpen := seedWindowsCmd.String("open", "", "Day-open time (HH:MM).")
	seedWindowsClose := seedWindowsCmd.String("close", "", "Day-close time (HH:MM).")
	seedWindowsCStart := seedWindowsCmd.String("cstart", "", "Closing window start (HH:MM).")
	seedWindowsCEnd := seedWindowsCmd.String("cend", "", "Closing window end (HH:MM).")

	bypassCmd := flag.NewFlagSet("bypass", flag.ExitOnError)
	bypassOn := bypassCmd.Bool("on", false, "Enable the bypass.")
	bypassOff := bypassCmd.Bool("off", false, "Disable the bypass.")
	bypassActor := bypassCmd.String("actor", "", "The acting admin's user ID.")

	overrideCmd := flag.NewFlagSet("override", flag.ExitOnError)
	overrideUser := overrideCmd.String("user", "", "The paused user's ID.")
	overrideOn := overrideCmd.Bool("on", false, "Activate the override.")
	overrideOff := overrideCmd.Bool("off", false, "Deactivate the override.")
	overrideActor := overrideCmd.String("actor", "", "The acting admin's user ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, *addUserRole, *addUserSupervisor)
	case "seedwindows":
		if err := seedWindowsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedWindowsType == "" || *seedWindowsOpen == "" || *seedWindowsClose == "" ||
			*seedWindowsCStart == "" || *seedWindowsCEnd == "" {
			seedWindowsCmd.Usage()
			return errHelp
		}
		return cli.seedWindows(*seedWindowsType, *seedWindowsOpen, *seedWindowsClose, *seedWindowsCStart, *seedWindowsCEnd)
	case "bypass":
		if err := bypassCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bypassOn == *bypassOff || *bypassActor == "" {
			bypassCmd.Usage()
			return errHelp
		}
		return cli.setBypass(*bypassActor, *bypassOn)
	case "override":
		if err := overrideCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *overrideUser == "" || *overrideOn == *overrideOff || *overrideActor == "" {
			overrideCmd.Usage()
			return errHelp
		}
		return cli.setOverride(*overrideActor, *overrideUser, *overrideOn)
	default:
		cli.printUsage()
		return errHelp
	}
}
