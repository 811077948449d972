package contracts

import "fmt"

// MetadataError is produced while probing metadata. It is logged and then
// replaced by a default, never returned to callers.
type MetadataError struct {
	Step  string
	Cause error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata %s: %v", e.Step, e.Cause)
}

func (e *MetadataError) Unwrap() error { return e.Cause }

type DecodeError struct {
	FileName string
	Cause    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.FileName, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

type EncodeError struct {
	FileName string
	Format   TargetFormat
	Cause    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s to %s: %v", e.FileName, e.Format, e.Cause)
}

func (e *EncodeError) Unwrap() error { return e.Cause }

// DispatchError means the worker crashed, went away, or answered with
// something that could not be understood.
type DispatchError struct {
	FileName string
	Cause    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.FileName, e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }
