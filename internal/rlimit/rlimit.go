// Package rlimit snapshots a process's resource limits at startup and
// restores them into freshly launched children, undoing any tightening a
// sandbox or prior child might have applied in between. Adapted from the
// teacher's sandbox rlimit handling (sandbox/linux.go's Setrlimit/Getrlimit
// pairs), repurposed from enforcing a ceiling to restoring one.
package rlimit

import "golang.org/x/sys/unix"

// Saved is a snapshot of the resource limits the server process started
// with, taken once at startup before any sandboxing or per-child limit
// adjustment could change them.
type Saved struct {
	limits map[int]unix.Rlimit
}

// resources covers the limits a long-lived supervisor is most likely to
// have lowered for itself — open files, core dump size, max processes —
// and must hand back unmodified to children.
var resources = []int{unix.RLIMIT_NOFILE, unix.RLIMIT_CORE, unix.RLIMIT_NPROC}

// Snapshot captures the current resource limits. Call this once at server
// startup.
func Snapshot() *Saved {
	s := &Saved{limits: make(map[int]unix.Rlimit, len(resources))}
	for _, res := range resources {
		var rl unix.Rlimit
		if err := unix.Getrlimit(res, &rl); err == nil {
			s.limits[res] = rl
		}
	}
	return s
}

// RestoreSavedLimits re-applies the snapshot taken at startup. A
// setrlimit-only call is safe to make in the narrow window between fork and
// exec: it is a bare syscall with no heap allocation or locking, unlike most
// libc calls in that window. This Go implementation instead runs it in the
// parent just before syscall.ForkExec, since Go provides no hook to run user
// code inside the forked-but-not-yet-exec'd child (see internal/ptyexec);
// the child inherits the restored limits directly from ProcAttr's implicit
// fd/limit inheritance.
func (s *Saved) RestoreSavedLimits() {
	for res, rl := range s.limits {
		limit := rl
		_ = unix.Setrlimit(res, &limit)
	}
}
