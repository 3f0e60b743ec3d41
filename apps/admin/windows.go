package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mwalimu/kazi/core/dayclose"
)

const clockLayout = "15:04"

// seedWindows sets the operational day windows for a user type.
func (cli *commandLine) seedWindows(userType, openTime, closeTime, cstart, cend string) error {
	for _, v := range []string{openTime, closeTime, cstart, cend} {
		if _, err := time.Parse(clockLayout, v); err != nil {
			return fmt.Errorf("invalid clock time %q, expected HH:MM", v)
		}
	}

	w, err := cli.winRepo.UpsertTimeWindow(context.Background(), dayclose.TimeWindow{
		UserType:           userType,
		DayOpenTime:        openTime,
		DayCloseTime:       closeTime,
		ClosingWindowStart: cstart,
		ClosingWindowEnd:   cend,
	})
	if err != nil {
		return err
	}
	fmt.Printf("windows set for %q: open %s-%s, closing %s-%s\n",
		w.UserType, w.DayOpenTime, w.DayCloseTime, w.ClosingWindowStart, w.ClosingWindowEnd)
	return nil
}
