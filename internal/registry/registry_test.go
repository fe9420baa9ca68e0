package registry

import "testing"

func TestAddCopiesRequest(t *testing.T) {
	r := New()
	req := Request{Path: "/bin/sh", Argv: []string{"sh"}, Envp: []string{"A=1"}, Pwd: "/tmp"}
	rec := r.Add(req, 3, -1, 100)

	req.Argv[0] = "mutated"
	if rec.Request.Argv[0] != "sh" {
		t.Errorf("Add did not deep-copy Argv: got %q", rec.Request.Argv[0])
	}
}

func TestMarkTerminatedAndRemove(t *testing.T) {
	r := New()
	r.Add(Request{Path: "/bin/a"}, 3, -1, 1)
	r.Add(Request{Path: "/bin/b"}, 4, -1, 2)

	r.MarkTerminated(0, 7)
	if !r.At(0).Terminated || r.At(0).Status != 7 {
		t.Fatalf("MarkTerminated did not set state: %+v", r.At(0))
	}

	r.Remove(0)
	if r.Len() != 1 {
		t.Fatalf("got len %d, want 1", r.Len())
	}
	if r.At(0).Pid != 2 {
		t.Errorf("got pid %d, want 2 after removing index 0", r.At(0).Pid)
	}
}

func TestReplayBurst_AllLive_LastIsNewest(t *testing.T) {
	r := New()
	r.Add(Request{Path: "/bin/a"}, 3, -1, 1)
	r.Add(Request{Path: "/bin/b"}, 4, -1, 2)
	r.Add(Request{Path: "/bin/c"}, 5, -1, 3)

	burst := r.ReplayBurst()
	if len(burst) != 3 {
		t.Fatalf("got %d items, want 3", len(burst))
	}
	for _, item := range burst {
		if item.ReportChild == nil || item.Termination != nil {
			t.Fatalf("expected all-live burst to contain only ReportChild items, got %+v", item)
		}
	}
	if burst[len(burst)-1].Pid != 3 {
		t.Errorf("got last pid %d, want 3 (most recently launched)", burst[len(burst)-1].Pid)
	}
}

func TestReplayBurst_DeadRecordInterleaved(t *testing.T) {
	r := New()
	r.Add(Request{Path: "/bin/a"}, 3, -1, 1)
	r.Add(Request{Path: "/bin/b"}, 4, -1, 2)
	r.MarkTerminated(1, 0)

	burst := r.ReplayBurst()
	var sawTermination, sawReport bool
	for _, item := range burst {
		if item.Termination != nil {
			sawTermination = true
			if item.Pid != 2 {
				t.Errorf("termination item pid = %d, want 2", item.Pid)
			}
		}
		if item.ReportChild != nil {
			sawReport = true
			if item.Pid != 1 {
				t.Errorf("report item pid = %d, want 1", item.Pid)
			}
		}
	}
	if !sawTermination || !sawReport {
		t.Fatalf("expected both a termination and a report in burst, got %+v", burst)
	}
}

func TestReapOnce(t *testing.T) {
	r := New()
	r.Add(Request{Path: "/bin/a"}, 3, -1, 100)
	r.Add(Request{Path: "/bin/b"}, 4, -1, 200)

	terminated := r.ReapOnce(func(pid int) (int, bool) {
		if pid == 200 {
			return 5, true
		}
		return 0, false
	})

	if len(terminated) != 1 {
		t.Fatalf("got %d terminated, want 1", len(terminated))
	}
	if !r.At(1).Terminated || r.At(1).Status != 5 {
		t.Errorf("record for pid 200 not marked terminated correctly: %+v", r.At(1))
	}
	if r.At(0).Terminated {
		t.Errorf("record for pid 100 should still be live")
	}
}
