package ports

import (
	"errors"
	"fmt"
)

// Status is the result code of a hardware stage call.
// Negative values are errors, positive values are warnings and zero is success.
type Status int

const (
	// StatusOK means the call succeeded.
	StatusOK Status = 0

	// StatusUnknown is reported for unclassified failures.
	StatusUnknown Status = -1
	// StatusNullPointer is reported when a required argument is missing.
	StatusNullPointer Status = -2
	// StatusUnsupported is reported for unsupported parameters.
	StatusUnsupported Status = -3
	// StatusMemoryAlloc is reported when a stage cannot allocate memory.
	StatusMemoryAlloc Status = -4
	// StatusNotEnoughBuffer means the output bitstream is smaller than required.
	StatusNotEnoughBuffer Status = -5
	// StatusInvalidHandle means a sync point or surface handle is not valid.
	StatusInvalidHandle Status = -6
	// StatusNotInitialized means the session was not initialized.
	StatusNotInitialized Status = -8
	// StatusMoreData means the stage needs more input before it can produce output.
	StatusMoreData Status = -10
	// StatusMoreSurface means the stage produced output and has more output
	// pending for the same input.
	StatusMoreSurface Status = -11
	// StatusAborted means the operation was aborted by the stage.
	StatusAborted Status = -12
	// StatusDeviceLost means the device is gone.
	StatusDeviceLost Status = -13
	// StatusInvalidParams means the parameters were rejected.
	StatusInvalidParams Status = -15
	// StatusDeviceFailed means the device reported a failure.
	StatusDeviceFailed Status = -17
	// StatusTimeout means a wait did not complete in time.
	StatusTimeout Status = -20

	// StatusWarnInExecution means the operation is still running.
	StatusWarnInExecution Status = 1
	// StatusDeviceBusy means the device has no free execution slot right now.
	StatusDeviceBusy Status = 2
	// StatusWarnVideoParamChanged means the stage adjusted stream parameters.
	StatusWarnVideoParamChanged Status = 3
	// StatusWarnPartialAcceleration means part of the work runs in software.
	StatusWarnPartialAcceleration Status = 4
	// StatusWarnIncompatibleParams means parameters were corrected.
	StatusWarnIncompatibleParams Status = 5
)

// Sentinel errors matching the error statuses.
var (
	ErrUnknown         = errors.New("hw: unknown error")
	ErrNullPointer     = errors.New("hw: null pointer")
	ErrUnsupported     = errors.New("hw: unsupported")
	ErrMemoryAlloc     = errors.New("hw: memory allocation failed")
	ErrNotEnoughBuffer = errors.New("hw: not enough buffer")
	ErrInvalidHandle   = errors.New("hw: invalid handle")
	ErrNotInitialized  = errors.New("hw: not initialized")
	ErrMoreData        = errors.New("hw: more data")
	ErrMoreSurface     = errors.New("hw: more surface")
	ErrAborted         = errors.New("hw: aborted")
	ErrDeviceLost      = errors.New("hw: device lost")
	ErrInvalidParams   = errors.New("hw: invalid video parameters")
	ErrDeviceFailed    = errors.New("hw: device failed")
	ErrTimeout         = errors.New("hw: wait timeout")
)

var statusErrors = map[Status]error{
	StatusUnknown:         ErrUnknown,
	StatusNullPointer:     ErrNullPointer,
	StatusUnsupported:     ErrUnsupported,
	StatusMemoryAlloc:     ErrMemoryAlloc,
	StatusNotEnoughBuffer: ErrNotEnoughBuffer,
	StatusInvalidHandle:   ErrInvalidHandle,
	StatusNotInitialized:  ErrNotInitialized,
	StatusMoreData:        ErrMoreData,
	StatusMoreSurface:     ErrMoreSurface,
	StatusAborted:         ErrAborted,
	StatusDeviceLost:      ErrDeviceLost,
	StatusInvalidParams:   ErrInvalidParams,
	StatusDeviceFailed:    ErrDeviceFailed,
	StatusTimeout:         ErrTimeout,
}

// IsError reports whether the status is an error.
func (s Status) IsError() bool {
	return s < 0
}

// IsWarning reports whether the status is a warning.
func (s Status) IsWarning() bool {
	return s > 0
}

// Err converts an error status into an error. Success and warnings return nil.
func (s Status) Err() error {
	if s >= 0 {
		return nil
	}
	if err, ok := statusErrors[s]; ok {
		return err
	}
	return fmt.Errorf("%w (status %d)", ErrUnknown, int(s))
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDeviceBusy:
		return "device busy"
	case StatusWarnInExecution:
		return "in execution"
	case StatusWarnVideoParamChanged:
		return "video params changed"
	case StatusWarnPartialAcceleration:
		return "partial acceleration"
	case StatusWarnIncompatibleParams:
		return "incompatible params"
	}
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("status(%d)", int(s))
}
