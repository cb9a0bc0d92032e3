package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stuckQueue struct{}

func (stuckQueue) NextError(context.Context) (DeviceError, error) {
	return DeviceError{Code: -420, Message: "Query UNTERMINATED"}, nil
}

func TestDrainErrorsStopsAtSentinel(t *testing.T) {
	queued := []DeviceError{
		{Code: -113, Message: "Undefined header"},
		{Code: -222, Message: "Data out of range"},
	}
	sim := NewSimulator(SimulatorOptions{QueuedErrors: queued}, noopLogger())

	drained, err := DrainErrors(context.Background(), sim, DefaultMaxErrorReads)
	if err != nil {
		t.Fatalf("排空错误队列不应失败: %v", err)
	}
	if diff := cmp.Diff(queued, drained); diff != "" {
		t.Fatalf("排空顺序不正确 (-want +got):\n%s", diff)
	}

	again, err := DrainErrors(context.Background(), sim, DefaultMaxErrorReads)
	if err != nil || len(again) != 0 {
		t.Fatalf("二次排空应为空队列: %v %v", again, err)
	}
}

func TestDrainErrorsBounded(t *testing.T) {
	drained, err := DrainErrors(context.Background(), stuckQueue{}, 5)
	if err == nil {
		t.Fatal("队列永不报空时应触发上限错误")
	}
	if len(drained) != 5 {
		t.Fatalf("上限前应保留已排空的 %d 条记录, 实际 %d", 5, len(drained))
	}
	var failure *Failure
	if !errors.As(err, &failure) || failure.Kind != KindDeviceFault {
		t.Fatalf("上限错误应为 device-fault, 实际 %v", err)
	}
}

func TestFailureMessage(t *testing.T) {
	err := NewFailure(KindProtocol, "series length %d != forcing length %d", 3, 5)
	if err.Error() == "" || err.Kind != KindProtocol {
		t.Fatalf("失败信息不完整: %#v", err)
	}
}

func TestSeriesColumns(t *testing.T) {
	series := Series{
		{Voltage: 0.01, Current: 5e-5},
		{Voltage: -0.01, Current: -5e-5},
	}
	if diff := cmp.Diff([]float64{0.01, -0.01}, series.Voltages()); diff != "" {
		t.Fatalf("电压列不正确 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{5e-5, -5e-5}, series.Currents()); diff != "" {
		t.Fatalf("电流列不正确 (-want +got):\n%s", diff)
	}
}
