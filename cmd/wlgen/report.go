package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"wlgen/pkg/run"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	cyan  = color.New(color.FgCyan)
)

func printBanner(dst io.Writer, cfg run.Config) {
	_, _ = bold.Fprintf(dst, "Running for %ds with (B,I,P,Y) workers: (%d,%d,%d,%d)\n",
		int(cfg.Duration/time.Second),
		cfg.Batch, cfg.Interactive, cfg.Periodic, cfg.YieldBurst)

	if cfg.Interactive > 0 {
		_, _ = cyan.Fprintf(dst, "  interactive: intervalMax %6d [us], durationMax %6d [us]\n",
			cfg.InteractiveParams.IntervalMax, cfg.InteractiveParams.DurationMax)
	}

	if cfg.Periodic > 0 {
		_, _ = cyan.Fprintf(dst, "  periodic:    period      %6d [us], dutyCycle   %6d [%%]\n",
			cfg.PeriodicParams.Period, cfg.PeriodicParams.DutyCycle)
	}

	if cfg.YieldBurst > 0 {
		_, _ = cyan.Fprintf(dst, "  yield-burst: burstPeriod %6d [us], yieldInterval %4d [us]\n",
			cfg.YieldBurstParams.BurstPeriod, cfg.YieldBurstParams.YieldInterval)
	}
}

// trackProgress renders a bar that fills over the nominal run duration,
// starting once the coordinator releases the barrier. The returned function
// stops the bar and blocks until it has finished drawing.
func trackProgress(dst io.Writer, coord *run.Coordinator, total time.Duration) func() {
	if total <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		bar := progressbar.NewOptions(int(total/time.Millisecond),
			progressbar.OptionSetDescription("running"),
			progressbar.OptionSetWriter(dst),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		var releasedAt time.Time

		for {
			select {
			case <-stop:
				_ = bar.Finish()

				return
			case <-ticker.C:
				if releasedAt.IsZero() {
					if coord.Released() {
						releasedAt = time.Now()
					}

					continue
				}

				elapsed := min(time.Since(releasedAt), total)
				_ = bar.Set(int(elapsed / time.Millisecond))
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

func printReport(dst io.Writer, result run.Result) {
	_, _ = fmt.Fprintln(dst)

	table := tablewriter.NewWriter(dst)
	table.Header("Worker", "Kind", "TID", "Iterations")

	for _, stat := range result.Workers {
		table.Append(
			stat.Name,
			stat.Kind.String(),
			fmt.Sprintf("%d", stat.ThreadID),
			fmt.Sprintf("%d", stat.Iterations),
		)
	}

	table.Render()

	_, _ = green.Fprintf(dst, "Time: %d.%03d\n",
		result.Elapsed.Sec, result.Elapsed.Nsec/int64(time.Millisecond))
}
