package instrument

import (
	"context"
	"fmt"
)

// Failure kinds, coarse enough to drive operator messaging.
const (
	KindCommunication = "communication"
	KindDeviceFault   = "device-fault"
	KindProtocol      = "protocol"
)

// Failure is the structured error a measurement source reports instead of a
// series. It is always typed, never a bare string mixed into the data path.
type Failure struct {
	Kind    string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("instrument: %s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// DeviceError is one entry from the instrument error queue. Code 0 is the
// empty-queue sentinel.
type DeviceError struct {
	Code    int
	Message string
}

// ErrorQueue reads queued device errors oldest first.
type ErrorQueue interface {
	NextError(ctx context.Context) (DeviceError, error)
}

// DefaultMaxErrorReads bounds a DrainErrors pass.
const DefaultMaxErrorReads = 32

// DrainErrors reads the device error queue until the empty sentinel and
// returns the drained entries in queue order. It stops after maxReads
// queries so a device that never reports the sentinel cannot wedge the
// caller; hitting that bound is reported as a device fault alongside
// whatever was drained.
func DrainErrors(ctx context.Context, queue ErrorQueue, maxReads int) ([]DeviceError, error) {
	if maxReads <= 0 {
		maxReads = DefaultMaxErrorReads
	}
	var drained []DeviceError
	for i := 0; i < maxReads; i++ {
		entry, err := queue.NextError(ctx)
		if err != nil {
			return drained, err
		}
		if entry.Code == 0 {
			return drained, nil
		}
		drained = append(drained, entry)
	}
	return drained, NewFailure(KindDeviceFault, "error queue still reporting after %d reads", maxReads)
}
