package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tRun\tMode\tSurface\tOhm/sq\tValid\tClass\tError")

	for _, run := range runs {
		errMsg := ""
		if run.Error != nil {
			errMsg = sanitizeInline(*run.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			shortID(run.ID),
			run.Mode,
			run.Surface,
			formatDecimal(run.Corrected, 3),
			run.Valid,
			run.Classification,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
