package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"sheet-probe/internal/app"
)

var (
	simulateResistance    float64
	simulateOffsetVoltage float64
	simulateNoiseFraction float64
	simulateFailKind      string
	simulateConfirmUnsafe bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "用内置模拟源执行一次完整测试",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateResistance <= 0 {
			return errors.New("--resistance 必须大于 0")
		}
		if simulateNoiseFraction < 0 {
			return errors.New("--noise 不能为负数")
		}

		opts := app.SimulateOptions{
			Resistance:    simulateResistance,
			OffsetVoltage: simulateOffsetVoltage,
			NoiseFraction: simulateNoiseFraction,
			FailKind:      simulateFailKind,
			ConfirmUnsafe: simulateConfirmUnsafe,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateResistance, "resistance", 200, "模拟样品电阻 (ohm)")
	simulateCmd.Flags().Float64Var(&simulateOffsetVoltage, "offset", 0, "模拟热电动势偏置电压 (V)")
	simulateCmd.Flags().Float64Var(&simulateNoiseFraction, "noise", 0, "模拟电流相对噪声比例")
	simulateCmd.Flags().StringVar(&simulateFailKind, "fail", "", "注入的故障类型 (communication/device-fault/protocol)")
	simulateCmd.Flags().BoolVar(&simulateConfirmUnsafe, "confirm-unsafe", false, "预先确认超过安全限值的档位")
}
