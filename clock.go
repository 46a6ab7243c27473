/*
Copyright © 2024 the hydromap authors.
This file is part of hydromap.

hydromap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hydromap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hydromap.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydromap

import "time"

// StepClock owns the simulation calendar: a start epoch and a fixed step
// duration. All step indices are integers and all derived timestamps are
// UTC.
type StepClock struct {
	Start time.Time
	// StepHours is the model time step [h].
	StepHours int
}

// NewStepClock returns a clock starting at the given UTC date and hour.
func NewStepClock(year int, month time.Month, day, hour, stepHours int) StepClock {
	return StepClock{
		Start:     time.Date(year, month, day, hour, 0, 0, 0, time.UTC),
		StepHours: stepHours,
	}
}

// Time returns the timestamp at the beginning of step i.
func (c StepClock) Time(i int) time.Time {
	return c.Start.Add(time.Duration(i*c.StepHours) * time.Hour)
}

// Date returns the calendar date at the beginning of step i.
func (c StepClock) Date(i int) (year int, month time.Month, day int) {
	t := c.Time(i)
	return t.Year(), t.Month(), t.Day()
}

// Month returns the 1-based month at the beginning of step i, for
// selecting monthly vegetation parameters.
func (c StepClock) Month(i int) int { return int(c.Time(i).Month()) }

// Epoch returns the start time as Unix seconds.
func (c StepClock) Epoch() int64 { return c.Start.Unix() }

// StepsUntil returns the number of whole steps between the clock start
// and t.
func (c StepClock) StepsUntil(t time.Time) int {
	return int(t.Sub(c.Start).Hours()) / c.StepHours
}

// dayOfYear returns the position of a date within its year, 1 for
// January 1st and 365 (or 366 in a leap year) for December 31st.
func dayOfYear(year int, month time.Month, day int) int {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).YearDay()
}
