package compute

import "errors"

var (
	// ErrDeviceUnavailable means no platform or no matching device exists.
	ErrDeviceUnavailable = errors.New("compute: no matching compute device")
	// ErrResourceCreation means the device rejected a context, queue, kernel
	// or pipe.
	ErrResourceCreation = errors.New("compute: resource creation failed")
	// ErrProgramBuild means the kernel program did not compile. See BuildError.
	ErrProgramBuild = errors.New("compute: program build failed")
	// ErrBufferAllocation means the device rejected a buffer allocation.
	ErrBufferAllocation = errors.New("compute: buffer allocation failed")
	// ErrOptionalFeatureUnavailable marks a missing optional capability.
	ErrOptionalFeatureUnavailable = errors.New("compute: optional feature unavailable")
	// ErrDispatch means argument binding, submission or execution failed.
	ErrDispatch = errors.New("compute: dispatch failed")
	// ErrTransfer means a read or write of device memory failed.
	ErrTransfer = errors.New("compute: transfer failed")
	// ErrReleased is returned when an object is used after Release.
	ErrReleased = errors.New("compute: object already released")
	// ErrProfilingUnavailable is returned by Event.Profile when the queue
	// was created without profiling.
	ErrProfilingUnavailable = errors.New("compute: profiling not enabled on queue")
)

// BuildError carries the compiler diagnostics of a failed program build.
type BuildError struct {
	Log string
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return ErrProgramBuild.Error()
	}
	return ErrProgramBuild.Error() + ":\n" + e.Log
}

// Unwrap makes errors.Is(err, ErrProgramBuild) hold.
func (e *BuildError) Unwrap() error { return ErrProgramBuild }
