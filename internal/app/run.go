package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"sheet-probe/internal/service"
	"sheet-probe/internal/storage"
	"sheet-probe/internal/waveform"
)

// RunOnce executes a single configured test and prints the result summary.
func (a *App) RunOnce(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params, err := a.Config.TestParameters()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, err := a.newSource()
	if err != nil {
		return err
	}

	var runStore storage.RunStore
	if store != nil {
		runStore = store
	}

	svc := service.New(a.Config, params, "run", service.Collaborators{
		Source:   source,
		Decider:  a.newDecider(opts.ConfirmUnsafe),
		Runs:     runStore,
		Progress: levelProgress(len(params.Levels), opts.NoProgress),
	}, a.Logger)

	outcome, err := svc.RunTest(ctx)
	if err != nil {
		return err
	}

	printOutcome(outcome)
	return nil
}

func levelProgress(total int, disabled bool) service.ProgressFunc {
	if disabled || total < 2 {
		return nil
	}
	bar := progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetDescription("levels"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetWriter(os.Stderr),
	)
	return func(done, _ int, _ float64) {
		_ = bar.Set(done)
	}
}

func printOutcome(outcome service.Outcome) {
	result := outcome.Result
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Run\t%s\n", outcome.RunID)
	fmt.Fprintf(writer, "Started (UTC)\t%s\n", outcome.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Sheet resistance\t%s ohm/sq\n", formatDecimal(decimal.NewFromFloat(result.Corrected), 4))
	fmt.Fprintf(writer, "Valid\t%t\n", result.Valid)
	fmt.Fprintf(writer, "Invalid fraction\t%s\n", formatDecimal(decimal.NewFromFloat(result.InvalidFraction), 4))
	fmt.Fprintf(writer, "Thickness factor\t%s\n", formatDecimal(decimal.NewFromFloat(result.ThicknessFactor), 6))
	fmt.Fprintf(writer, "Lateral factor\t%s\n", formatDecimal(decimal.NewFromFloat(result.LateralFactor), 6))
	fmt.Fprintf(writer, "Classification\t%s\n", result.Classification)
	if len(result.Ratios) > 1 {
		fmt.Fprintf(writer, "Ratios kept\t%d/%d\n", len(result.Filtered), len(result.Ratios))
	}
	writer.Flush()
}

// promptDecider asks the operator on the terminal before an unsafe level is
// forced. The wait for an answer is unbounded; only an explicit yes proceeds.
type promptDecider struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptDecider() *promptDecider {
	return &promptDecider{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

// Confirm implements waveform.Decider.
func (d *promptDecider) Confirm(_ context.Context, blocked waveform.BlockedError) (bool, error) {
	fmt.Fprintf(d.out, "%s\n", blocked.Error())
	fmt.Fprint(d.out, "proceed anyway? [y/N]: ")

	line, err := d.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

var _ waveform.Decider = (*promptDecider)(nil)
