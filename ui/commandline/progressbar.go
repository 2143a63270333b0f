/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package commandline

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/topomlx/ml/train"
	"github.com/gomlx/topomlx/types/tensors"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBarName used to register the hooks on the loop.
const ProgressBarName = "topomlx.ml.train.commandline.progressBar"

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

// progressBarUpdate carries one epoch worth of rows to the asynchronous
// drawer goroutine.
type progressBarUpdate struct {
	amount int
	rows   [][2]string
}

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

// progressBar holds a progressbar being displayed: one unit per epoch.
type progressBar struct {
	bar *progressbar.ProgressBar

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	lastNumLines     int
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

// onStart creates the bar and starts the drawer goroutine. Creating them
// here, and not on AttachProgressBar, guarantees nothing is left running when
// the loop never starts (e.g. a run over 0 epochs fires no hooks at all) and
// gives each run a fresh channel, since onEnd closes it.
func (pBar *progressBar) onStart(loop *train.Loop, _ train.Dataset) error {
	pBar.bar = progressbar.NewOptions(loop.NumEpochs,
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("epochs"),
		progressbar.OptionSetTheme(ProgressbarStyle),
	)
	pBar.isFirstOutput = true
	pBar.updates = make(chan progressBarUpdate, 100) // Large buffer so things are not blocked.
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
	return nil
}

func (pBar *progressBar) onEpochEnd(loop *train.Loop, epochMetrics *train.EpochMetrics) error {
	if pBar.bar.IsFinished() {
		return nil
	}
	update := progressBarUpdate{amount: 1}
	update.rows = append(update.rows,
		[2]string{"Epoch", fmt.Sprintf("%d of %d", epochMetrics.Epoch+1, loop.NumEpochs)},
		[2]string{"Median train step duration", FormatDuration(loop.MedianTrainStepDuration())})
	for metricIdx, metricObj := range loop.Trainer.TrainMetrics() {
		update.rows = append(update.rows,
			[2]string{metricObj.Name(), metricObj.PrettyPrint(epochMetrics.Train[metricIdx])})
	}
	if epochMetrics.Evaluated() {
		for metricIdx, metricObj := range loop.Trainer.EvalMetrics() {
			update.rows = append(update.rows,
				[2]string{metricObj.Name(), metricObj.PrettyPrint(epochMetrics.Eval[metricIdx])})
		}
	}
	for _, extraMetric := range pBar.extraMetricFns {
		name, value := extraMetric()
		update.rows = append(update.rows, [2]string{name, value})
	}
	pBar.updates <- update
	return nil
}

func (pBar *progressBar) onEnd(_ *train.Loop, _ []*tensors.Tensor) error {
	close(pBar.updates)
	pBar.asyncUpdatesDone.Wait()
	pBar.termenv.ShowCursor()
	fmt.Println()
	return nil
}

// drawUpdates runs in its own goroutine, draining the updates channel: if
// the training outpaces the terminal, intermediate epochs are collapsed into
// one redraw.
func (pBar *progressBar) drawUpdates() {
	for update := range pBar.updates {
		// Exhaust the updates in the buffer:
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		// Create the table to be printed.
		pBar.statsTable.Data(lgtable.NewStringData())
		for _, row := range update.rows {
			pBar.statsTable.Row(row[0], row[1])
		}

		// For command-line, we clear the previous lines that will be overwritten.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			pBar.termenv.CursorPrevLine(pBar.lastNumLines)
		}
		pBar.isFirstOutput = false

		// Print update.
		rendered := pBar.statsStyle.Render(pBar.statsTable.String())
		fmt.Println(rendered)
		_ = pBar.bar.Add(amount) // Prints progress bar line.
		fmt.Println()
		pBar.lastNumLines = strings.Count(rendered, "\n") + 1 + 2
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
	pBar.asyncUpdatesDone.Done()
}

// AttachProgressBar creates a commandline progress bar and attaches it to the Loop, so that
// everytime Loop is run, it will display a progress bar with progression and metrics.
//
// The associated data will be attached to the train.Loop, so nothing is returned.
//
// Optionally, one can provide extraMetrics: functions that are called at every update of
// the progress bar and should return a name (title) and a value to be included in the
// updated print-out.
func AttachProgressBar(loop *train.Loop, extraMetrics ...ExtraMetricFn) {
	pBar := &progressBar{
		extraMetricFns: extraMetrics,
	}
	pBar.termenv = termenv.NewOutput(os.Stdout)
	pBar.statsStyle = lipgloss.NewStyle().PaddingLeft(8)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})

	loop.OnStart(ProgressBarName, 0, pBar.onStart)
	loop.OnEpochEnd(ProgressBarName, 0, pBar.onEpochEnd)
	loop.OnEnd(ProgressBarName, 0, pBar.onEnd)
}
