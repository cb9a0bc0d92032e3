package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"sheet-probe/internal/analysis"
	"sheet-probe/internal/instrument"
)

// Reanalyze 在当前分析配置下重新计算历史运行的方块电阻并输出对照。
// 只读操作，不回写数据库。
func (a *App) Reanalyze(ctx context.Context, opts ReanalyzeOptions) error {
	params, err := a.Config.TestParameters()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn 未配置，无法重新分析")
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

	pipe := analysis.Pipeline{
		Window: analysis.Window{
			InitialZero: params.InitialZero,
			Period:      params.Period,
			Duty:        params.Duty,
		},
		Filter:       analysis.FilterFor(params.OutlierStrategy, params.OutlierThreshold),
		InvalidLimit: params.InvalidLimit,
		Spacing:      params.Spacing,
		Sample:       params.Sample,
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run\tStored\tRecomputed\tDelta\tClass")

	processed := 0
	skipped := 0
	failed := 0
	for _, run := range runs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if len(run.Series) == 0 || string(run.Series) == "null" {
			skipped++
			a.Logger.Warn().Str("run_id", run.ID).Msg("历史运行缺少原始序列，跳过")
			continue
		}

		var series []instrument.Series
		if err := json.Unmarshal(run.Series, &series); err != nil {
			failed++
			a.Logger.Error().Err(err).Str("run_id", run.ID).Msg("原始序列解码失败")
			continue
		}

		result, err := pipe.Evaluate(series)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("run_id", run.ID).Msg("重新分析失败")
			continue
		}
		processed++

		recomputed := decimal.NewFromFloat(result.Corrected)
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			shortID(run.ID),
			formatDecimal(run.Corrected, 4),
			formatDecimal(recomputed, 4),
			formatDecimal(recomputed.Sub(run.Corrected), 4),
			result.Classification,
		)
	}

	writer.Flush()

	a.Logger.Info().Int("processed", processed).Int("skipped", skipped).Int("failed", failed).Msg("重新分析完成")
	if failed > 0 {
		return errors.New("部分运行重新分析失败，请检查日志")
	}
	return nil
}
