package main

import (
	"context"
	"fmt"
)

// setBypass toggles the global day-close window bypass as the given admin.
func (cli *commandLine) setBypass(actorID string, on bool) error {
	ctx := context.Background()

	actor, err := cli.usrSvc.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if err = cli.dcSvc.SetBypass(ctx, actor, on); err != nil {
		return err
	}
	fmt.Printf("bypass enabled=%t (by %s)\n", on, actor.Username)
	return nil
}

// setOverride toggles a user's escalation pause override as the given admin.
func (cli *commandLine) setOverride(actorID, userID string, active bool) error {
	ctx := context.Background()

	actor, err := cli.usrSvc.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	state, err := cli.escSvc.SetOverride(ctx, actor, userID, active)
	if err != nil {
		return err
	}
	fmt.Printf("override active=%t for user %s; paused=%t (%d open matters)\n",
		active, userID, state.Paused, state.OpenCount)
	return nil
}
