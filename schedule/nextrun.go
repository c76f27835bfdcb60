// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/answerdesk/answerdesk/core"
)

// NextRun computes a schedule's next run time strictly after now.
// A zero return with a nil error means no run is planned: the schedule is
// disabled, its one-time date has passed, or weekly mode has no weekdays
// configured.
//
// All wall-clock math happens in the schedule's timezone, so a chatbot
// configured for "03:00 Europe/Berlin" keeps running at 03:00 local time
// across DST changes. An empty timezone means UTC.
func NextRun(sched *core.ReindexSchedule, now time.Time) (time.Time, error) {
	if sched.Mode == core.ScheduleDisabled {
		return time.Time{}, nil
	}

	hour, minute, err := core.ParseTimeOfDay(sched.TimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	loc := time.UTC
	if sched.Timezone != "" {
		loc, err = time.LoadLocation(sched.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidTimezone, sched.Timezone)
		}
	}
	local := now.In(loc)

	switch sched.Mode {
	case core.ScheduleOnce:
		date, err := time.Parse("2006-01-02", sched.OnceDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid one-time date %q", sched.OnceDate)
		}
		at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
		if at.After(now) {
			return at, nil
		}
		return time.Time{}, nil

	case core.ScheduleDaily:
		at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if at.After(now) {
			return at, nil
		}
		return time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc), nil

	case core.ScheduleWeekly:
		if len(sched.Weekdays) == 0 {
			return time.Time{}, nil
		}
		for offset := 0; offset <= 7; offset++ {
			at := time.Date(local.Year(), local.Month(), local.Day()+offset, hour, minute, 0, 0, loc)
			if !slices.Contains(sched.Weekdays, at.Weekday()) {
				continue
			}
			if at.After(now) {
				return at, nil
			}
		}
		return time.Time{}, nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule mode %d", sched.Mode)
	}
}
