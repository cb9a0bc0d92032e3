package instrument

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSimulatorSeriesLength(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Resistance: 100}, noopLogger())
	forcing := []float64{0, 1e-5, -1e-5, 2e-5, -2e-5}

	series, err := sim.Acquire(context.Background(), forcing, Settings{NPLC: 1})
	if err != nil {
		t.Fatalf("采集不应失败: %v", err)
	}
	if len(series) != len(forcing) {
		t.Fatalf("采集点数 %d 应与激励点数 %d 一致", len(series), len(forcing))
	}
	for i, smp := range series {
		if smp.Source != forcing[i] {
			t.Fatalf("第 %d 点 source = %v, 期望 %v", i, smp.Source, forcing[i])
		}
	}
}

func TestSimulatorOhmicReadings(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Resistance: 200}, noopLogger())
	series, err := sim.Acquire(context.Background(), []float64{5e-5, -5e-5}, Settings{NPLC: 1})
	if err != nil {
		t.Fatalf("采集不应失败: %v", err)
	}
	if got := series[0].Voltage; math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("正向电压 = %v, 期望 0.01", got)
	}
	if got := series[1].Voltage; math.Abs(got+0.01) > 1e-12 {
		t.Fatalf("反向电压 = %v, 期望 -0.01", got)
	}
}

func TestSimulatorOverflowAtZeroCurrent(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Resistance: 100}, noopLogger())
	series, err := sim.Acquire(context.Background(), []float64{0}, Settings{})
	if err != nil {
		t.Fatalf("采集不应失败: %v", err)
	}
	if series[0].Resistance != OverflowValue {
		t.Fatalf("零电流下电阻读数应为溢出哨兵, 实际 %v", series[0].Resistance)
	}
}

func TestSimulatorComplianceClamp(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Resistance: 1e6}, noopLogger())
	series, err := sim.Acquire(context.Background(), []float64{1e-3}, Settings{ComplianceVoltage: 20})
	if err != nil {
		t.Fatalf("采集不应失败: %v", err)
	}
	if series[0].Voltage != 20 {
		t.Fatalf("电压应被钳制到 20V, 实际 %v", series[0].Voltage)
	}
	if series[0].Status != 1 {
		t.Fatalf("钳制样本应置位状态标志, 实际 %v", series[0].Status)
	}
}

func TestSimulatorInjectedFailure(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{FailureKind: KindDeviceFault}, noopLogger())
	_, err := sim.Acquire(context.Background(), []float64{1e-5}, Settings{})
	if err == nil {
		t.Fatal("注入故障时应返回错误")
	}
	var failure *Failure
	if !errors.As(err, &failure) || failure.Kind != KindDeviceFault {
		t.Fatalf("应返回 device-fault 类型失败, 实际 %v", err)
	}
}

func TestSimulatorElapsedAdvances(t *testing.T) {
	wait := 0.005
	sim := NewSimulator(SimulatorOptions{Resistance: 100}, noopLogger())
	series, err := sim.Acquire(context.Background(), []float64{1e-5, 1e-5}, Settings{NPLC: 1, WaitOffset: &wait})
	if err != nil {
		t.Fatalf("采集不应失败: %v", err)
	}
	step := series[1].Elapsed - series[0].Elapsed
	if math.Abs(step-0.025) > 1e-9 {
		t.Fatalf("时间步长 = %v, 期望 0.025 (1 PLC + 5ms)", step)
	}
}
