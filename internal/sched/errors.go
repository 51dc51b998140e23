package sched

import "errors"

var (
	ErrTableFull      = errors.New("task table full")
	ErrDuplicateTask  = errors.New("task already registered")
	ErrNilTask        = errors.New("nil task")
	ErrStarted        = errors.New("scheduler already started")
	ErrUnknownSyscall = errors.New("unknown syscall")
)
