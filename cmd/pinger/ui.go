package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type userInterface struct {
	app     *tview.Application
	table   *tview.Table
	logs    *tview.TextView
	capture *logInterceptor
	coord   *monitor.Coordinator
}

var columns = []struct {
	title string
	align int
}{
	{"host", tview.AlignLeft},
	{"address", tview.AlignLeft},
	{"sent", tview.AlignRight},
	{"loss", tview.AlignRight},
	{"last", tview.AlignRight},
	{"best", tview.AlignRight},
	{"worst", tview.AlignRight},
	{"mean", tview.AlignRight},
	{"stddev", tview.AlignRight},
	{"last err", tview.AlignLeft},
}

func buildTUI(coord *monitor.Coordinator, capture *logInterceptor) *userInterface {
	ui := &userInterface{
		app:     tview.NewApplication(),
		table:   tview.NewTable().SetBorders(false).SetFixed(1, 0),
		logs:    tview.NewTextView().SetDynamicColors(false).SetScrollable(false),
		capture: capture,
		coord:   coord,
	}

	ui.table.SetBorder(true)
	ui.logs.SetBorder(true).SetTitle(" log ")

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			ui.app.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				ui.app.Stop()
				return nil
			case 'p':
				go coord.TogglePause()
				return nil
			}
		}
		return event
	})

	ui.render(monitor.Update{Status: coord.Status(), Batch: coord.Batch()})
	return ui
}

func (ui *userInterface) Run() error {
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.table, 0, 3, true).
		AddItem(ui.logs, 8, 0, false)

	ui.app.SetRoot(layout, true).SetFocus(ui.table)
	return ui.app.Run()
}

// update redraws the table for every update until the subscription ends.
func (ui *userInterface) update(updates *monitor.Subscription[monitor.Update]) {
	for u := range updates.C {
		u := u
		ui.app.QueueUpdateDraw(func() {
			ui.render(u)
		})
	}
}

// render must run on the UI goroutine once the application is running.
func (ui *userInterface) render(u monitor.Update) {
	cfg := ui.coord.Config()
	ui.table.SetTitle(fmt.Sprintf(" %s  %s, every %v, threshold %dms  [p] pause  [q] exit ",
		u.Status.Text, u.Status.Status.Description(), cfg.Interval, cfg.ThresholdMs))

	ui.table.Clear()
	for c, col := range columns {
		ui.table.SetCell(0, c, tview.NewTableCell(col.title).
			SetAlign(col.align).
			SetSelectable(false).
			SetTextColor(tcell.ColorYellow))
	}

	ui.logs.SetText(strings.Join(ui.capture.Messages(), "\n"))

	history := ui.coord.History()
	for i, t := range ui.coord.Registry().Targets() {
		row := ui.row(t, u.Batch, history)
		for c, text := range row {
			cell := tview.NewTableCell(text).SetAlign(columns[c].align)
			if !t.Enabled {
				cell.SetTextColor(tcell.ColorGray)
			}
			ui.table.SetCell(i+1, c, cell)
		}
	}
}

func (ui *userInterface) row(t monitor.Target, batch monitor.Batch, history *monitor.HistoryStore) []string {
	row := make([]string, len(columns))
	for i := range row {
		row[i] = "n/a"
	}
	row[0] = t.DisplayName()
	row[1] = t.Host
	row[len(row)-1] = ""

	if !t.Enabled {
		row[len(row)-1] = "disabled"
	}

	if r, found := batch[t.ID]; found {
		if r.Success {
			row[4] = ts(r.Latency)
		} else {
			row[4] = "lost"
			row[len(row)-1] = r.Error
		}
	}

	if m := history.Metrics(t.ID); m != nil {
		row[2] = strconv.Itoa(m.PacketsSent)
		row[3] = fmt.Sprintf("%0.2f%%", 100*m.Loss())
		if m.PacketsLost < m.PacketsSent {
			row[5] = ts(m.Best)
			row[6] = ts(m.Worst)
			row[7] = ts(m.Mean)
			row[8] = m.StdDev.String()
		}
	}
	return row
}

const tsDividend = float64(time.Millisecond) / float64(time.Nanosecond)

func ts(dur time.Duration) string {
	if 10*time.Microsecond < dur && dur < time.Second {
		return fmt.Sprintf("%0.2fms", float64(dur.Nanoseconds())/tsDividend)
	}
	return dur.String()
}
