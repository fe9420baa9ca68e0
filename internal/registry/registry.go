// Package registry tracks the server's live and not-yet-reported children:
// an ordered, in-memory sequence of records, grown on successful launch and
// shrunk only once a termination has been conveyed to a client. It holds no
// long-lived pointers across a resize — callers address records by index,
// re-resolved on each pass, since the backing slice may be reallocated.
package registry

// Request is an owned copy of the Launch request a child was started from,
// kept around so it can be replayed to a reattaching client.
type Request struct {
	Path   string
	Argv   []string
	Envp   []string
	IsUTF8 bool
	Pwd    string
}

// Record is one supervised child: its launch parameters, pid, PTY master
// fd, and reap state. Terminated is set exactly once, from the main loop,
// when a nonblocking reap returns this pid.
type Record struct {
	Request    Request
	Pid        int
	MasterFd   int
	DeadmanFd  int
	Terminated bool
	Status     int
}

// Registry is a growable, insertion-ordered sequence of Records.
type Registry struct {
	records []*Record
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add deep-copies req and appends a new live record, returning it.
func (r *Registry) Add(req Request, masterFd int, deadmanFd int, pid int) *Record {
	rec := &Record{
		Request:   copyRequest(req),
		Pid:       pid,
		MasterFd:  masterFd,
		DeadmanFd: deadmanFd,
	}
	r.records = append(r.records, rec)
	return rec
}

func copyRequest(req Request) Request {
	cp := req
	cp.Argv = append([]string(nil), req.Argv...)
	cp.Envp = append([]string(nil), req.Envp...)
	return cp
}

// MarkTerminated records the outcome of a reap for the record at index i.
func (r *Registry) MarkTerminated(i int, status int) {
	r.records[i].Terminated = true
	r.records[i].Status = status
}

// Remove drops the record at index i, preserving the relative order of the
// rest.
func (r *Registry) Remove(i int) {
	r.records = append(r.records[:i], r.records[i+1:]...)
}

// Len reports the number of records currently held.
func (r *Registry) Len() int {
	return len(r.records)
}

// At returns the record at index i.
func (r *Registry) At(i int) *Record {
	return r.records[i]
}

// Iterate calls fn for every record in insertion order. fn must not mutate
// the registry; use indexed access (Len/At/Remove) for that.
func (r *Registry) Iterate(fn func(i int, rec *Record)) {
	for i, rec := range r.records {
		fn(i, rec)
	}
}

// FindByPid returns the index of the record for pid, or -1 if absent.
func (r *Registry) FindByPid(pid int) int {
	for i, rec := range r.records {
		if rec.Pid == pid {
			return i
		}
	}
	return -1
}

// Waiter performs a single nonblocking reap attempt for pid, reporting
// whether it exited and, if so, its raw wait status.
type Waiter func(pid int) (status int, exited bool)

// ReapOnce attempts a nonblocking reap of every live record and marks any
// that exited as terminated, returning their indices in scan order. It does
// not remove them: removal only happens once the corresponding Termination
// has been conveyed to a client (see ReplayBurst and the caller in
// internal/server).
func (r *Registry) ReapOnce(wait Waiter) []int {
	var terminated []int
	for i, rec := range r.records {
		if rec.Terminated {
			continue
		}
		if status, exited := wait(rec.Pid); exited {
			r.MarkTerminated(i, status)
			terminated = append(terminated, i)
		}
	}
	return terminated
}

// BurstItem is one message of a replay burst: exactly one of ReportChild or
// Termination is set.
type BurstItem struct {
	Pid         int
	ReportChild *Record // live record to replay; IsLast set by the caller
	Termination *Record // dead record whose termination must be delivered
}

// ReplayBurst computes the ordered sequence of messages a reattaching
// client must receive. It scans in reverse so that interleaved dead records
// can be identified before any mutation, but the returned ReportChild
// entries preserve insertion order (oldest first, newest last) as required
// for the final isLast message. Dead records come first in the slice, in
// the order the reverse scan found them (newest first); the caller is expected to send each
// Termination item and call RemoveDead only after a successful send.
func (r *Registry) ReplayBurst() []BurstItem {
	var dead []BurstItem
	var live []BurstItem
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.Terminated {
			dead = append(dead, BurstItem{Pid: rec.Pid, Termination: rec})
			continue
		}
		live = append(live, BurstItem{Pid: rec.Pid, ReportChild: rec})
	}
	// live was built newest-first by the reverse scan; restore insertion
	// order (oldest first, newest last) so the last ReportChild sent is the
	// most recently launched child.
	for i, j := 0, len(live)-1; i < j; i, j = i+1, j-1 {
		live[i], live[j] = live[j], live[i]
	}
	return append(dead, live...)
}

// RemoveDead removes the record for pid after its Termination has been
// successfully delivered.
func (r *Registry) RemoveDead(pid int) {
	if i := r.FindByPid(pid); i >= 0 {
		r.Remove(i)
	}
}
