package kernel

import "errors"

var (
	// ErrResourceExhausted is returned when no thread control block is free.
	ErrResourceExhausted = errors.New("kernel: no free thread slot")
	// ErrNoSuchThread is returned for an identifier that names no live thread.
	ErrNoSuchThread = errors.New("kernel: no such thread")
	// ErrBadPriority is returned for a priority outside [PriMin, PriMax].
	ErrBadPriority = errors.New("kernel: priority out of range")
	// ErrBadFrequency is returned for a timer frequency the PIT cannot produce.
	ErrBadFrequency = errors.New("kernel: timer frequency out of range")
	// ErrPolicyManaged is returned when the feedback policy owns priorities.
	ErrPolicyManaged = errors.New("kernel: priorities are managed by the scheduling policy")
	// ErrStarted is returned by Run on a kernel that already booted.
	ErrStarted = errors.New("kernel: already started")
)
