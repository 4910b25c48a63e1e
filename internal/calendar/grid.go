package calendar

import (
	"time"

	"availability-bot/internal/models"
)

type CellState int

const (
	StateNormal CellState = iota
	StateRestricted
	StateSelected
)

// Cell is one slot of the grid. Blank cells pad the first and last week.
type Cell struct {
	Blank bool
	Day   int
	Key   models.DateKey
	State CellState
}

type Grid struct {
	Year  int
	Month time.Month
	Weeks [][]Cell
}

// Render lays out the month as Monday-first weeks of seven cells.
func Render(year int, month time.Month, selected, restricted map[models.DateKey]struct{}) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	// time.Weekday starts at Sunday.
	lead := (int(first.Weekday()) + 6) % 7

	grid := Grid{Year: year, Month: month}
	week := make([]Cell, 0, 7)
	for i := 0; i < lead; i++ {
		week = append(week, Cell{Blank: true})
	}

	for d := 1; d <= days; d++ {
		key := models.NewDateKey(year, month, d)
		week = append(week, Cell{Day: d, Key: key, State: cellState(key, selected, restricted)})
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = make([]Cell, 0, 7)
		}
	}

	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Cell{Blank: true})
		}
		grid.Weeks = append(grid.Weeks, week)
	}

	return grid
}

func cellState(key models.DateKey, selected, restricted map[models.DateKey]struct{}) CellState {
	if _, ok := selected[key]; ok {
		return StateSelected
	}
	if _, ok := restricted[key]; ok {
		return StateRestricted
	}
	return StateNormal
}
