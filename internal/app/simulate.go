package app

import (
	"context"

	"sheet-probe/internal/instrument"
	"sheet-probe/internal/service"
	"sheet-probe/internal/waveform"
)

// Simulate 使用内置模拟源执行一次完整测试并打印结果。配置了告警时
// 同时演练告警流程。
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	params, err := a.Config.TestParameters()
	if err != nil {
		return err
	}

	sim := instrument.NewSimulator(instrument.SimulatorOptions{
		Resistance:    opts.Resistance,
		OffsetVoltage: opts.OffsetVoltage,
		NoiseFraction: opts.NoiseFraction,
		FailureKind:   opts.FailKind,
	}, a.Logger)

	svc := service.New(a.Config, params, "simulate", service.Collaborators{
		Source:   sim,
		Decider:  waveform.StaticDecider{Proceed: opts.ConfirmUnsafe},
		Notifier: a.newNotifier(),
	}, a.Logger)

	outcome, err := svc.RunTest(ctx)
	if err != nil {
		return err
	}

	printOutcome(outcome)
	svc.EvaluateAlert(ctx, outcome)

	a.Logger.Info().Str("run_id", outcome.RunID).Msg("模拟测试完成")
	return nil
}
