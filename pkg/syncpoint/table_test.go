package syncpoint

import (
	"testing"
	"time"

	"github.com/user/vidpipe/pkg/ports"
)

func TestTable_IssueUnique(t *testing.T) {
	table := NewTable()

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		sp := table.Issue()
		if sp.IsZero() {
			t.Fatal("issued zero token")
		}
		if seen[sp.ID()] {
			t.Fatalf("token %d issued twice", sp.ID())
		}
		seen[sp.ID()] = true
	}
}

func TestTable_WaitResolved(t *testing.T) {
	table := NewTable()
	sp := table.Issue()

	go func() {
		time.Sleep(5 * time.Millisecond)
		table.Resolve(sp, ports.StatusOK)
	}()

	if st := table.Wait(sp, time.Second); st != ports.StatusOK {
		t.Errorf("expected ok, got %v", st)
	}
}

func TestTable_WaitConsumesToken(t *testing.T) {
	table := NewTable()
	sp := table.Issue()
	table.Resolve(sp, ports.StatusOK)

	if st := table.Wait(sp, time.Second); st != ports.StatusOK {
		t.Fatalf("first wait: expected ok, got %v", st)
	}
	if st := table.Wait(sp, time.Second); st != ports.StatusInvalidHandle {
		t.Errorf("second wait: expected invalid handle, got %v", st)
	}
	if table.Pending() != 0 {
		t.Errorf("expected no pending tokens, got %d", table.Pending())
	}
}

func TestTable_WaitTimeout(t *testing.T) {
	table := NewTable()
	sp := table.Issue()

	if st := table.Wait(sp, 10*time.Millisecond); st != ports.StatusTimeout {
		t.Errorf("expected timeout, got %v", st)
	}
	// Token is still valid after a timeout
	table.Resolve(sp, ports.StatusAborted)
	if st := table.Wait(sp, time.Second); st != ports.StatusAborted {
		t.Errorf("expected aborted, got %v", st)
	}
}

func TestTable_PollUnresolved(t *testing.T) {
	table := NewTable()
	sp := table.Issue()

	if st := table.Wait(sp, 0); st != ports.StatusWarnInExecution {
		t.Errorf("expected in execution, got %v", st)
	}
	if st := table.Status(sp); st != ports.StatusWarnInExecution {
		t.Errorf("expected in execution, got %v", st)
	}
}

func TestTable_ZeroToken(t *testing.T) {
	table := NewTable()
	if st := table.Wait(ports.SyncPoint{}, time.Second); st != ports.StatusNullPointer {
		t.Errorf("expected null pointer, got %v", st)
	}
}

func TestTable_ResolveTwice(t *testing.T) {
	table := NewTable()
	sp := table.Issue()

	if !table.Resolve(sp, ports.StatusOK) {
		t.Fatal("first resolve should succeed")
	}
	if table.Resolve(sp, ports.StatusAborted) {
		t.Error("second resolve should be ignored")
	}
	if st := table.Wait(sp, 0); st != ports.StatusOK {
		t.Errorf("expected first status to win, got %v", st)
	}
}

func TestTable_ResolveAll(t *testing.T) {
	table := NewTable()
	a := table.Issue()
	b := table.Issue()
	table.Resolve(a, ports.StatusOK)

	table.ResolveAll(ports.StatusAborted)

	if st := table.Wait(a, 0); st != ports.StatusOK {
		t.Errorf("resolved token changed status: %v", st)
	}
	if st := table.Wait(b, 0); st != ports.StatusAborted {
		t.Errorf("expected aborted, got %v", st)
	}
}
