package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/jsonbatch/internal/domain"
)

func records(n int) domain.Batch {
	rs := make([]domain.Record, n)
	for i := range rs {
		rs[i] = domain.Record{"i": i}
	}
	return domain.Batch{ID: "b", Records: rs}
}

func TestPolicy_Decide(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		policy     Policy
		size       int
		attempt    int
		wantAction Action
		wantDelay  time.Duration
		wantReason error
	}{
		{
			name:       "split multi-record batch",
			policy:     Policy{RetryIndividual: true},
			size:       3,
			wantAction: Split,
		},
		{
			name:       "single record is terminal",
			policy:     Policy{RetryIndividual: true},
			size:       1,
			wantAction: Drop,
			wantReason: domain.ErrSplitExhausted,
		},
		{
			name:       "split ignores whole-batch retry settings",
			policy:     Policy{RetryIndividual: true, MaxAttempts: 5, Delay: time.Second},
			size:       4,
			wantAction: Split,
		},
		{
			name:       "no split, no retry is terminal",
			policy:     Policy{},
			size:       3,
			wantAction: Drop,
			wantReason: cause,
		},
		{
			name:       "whole-batch retry below cap",
			policy:     Policy{MaxAttempts: 3, Delay: 100 * time.Millisecond},
			size:       3,
			attempt:    2,
			wantAction: Retry,
			wantDelay:  100 * time.Millisecond,
		},
		{
			name:       "whole-batch retry cap reached",
			policy:     Policy{MaxAttempts: 3, Delay: 100 * time.Millisecond},
			size:       3,
			attempt:    3,
			wantAction: Drop,
			wantReason: domain.ErrRetriesExhausted,
		},
		{
			name:       "whole-batch retry applies to single record",
			policy:     Policy{MaxAttempts: 1},
			size:       1,
			wantAction: Retry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := tt.policy.NewBackOff()
			for i := 0; i < tt.attempt && schedule != nil; i++ {
				schedule.NextBackOff()
			}
			d := tt.policy.Decide(records(tt.size), tt.attempt, schedule, cause)

			if d.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", d.Action, tt.wantAction)
			}
			if d.Delay != tt.wantDelay {
				t.Errorf("Delay = %v, want %v", d.Delay, tt.wantDelay)
			}
			if tt.wantReason != nil {
				if !errors.Is(d.Reason, tt.wantReason) {
					t.Errorf("Reason = %v, want %v", d.Reason, tt.wantReason)
				}
				if !errors.Is(d.Reason, cause) {
					t.Errorf("Reason %v does not wrap the failure", d.Reason)
				}
			}
		})
	}
}

func TestPolicy_SplitTerminates(t *testing.T) {
	p := Policy{RetryIndividual: true}
	cause := errors.New("always fails")

	work := []domain.Batch{records(5)}
	splits, drops := 0, 0
	for steps := 0; len(work) > 0; steps++ {
		if steps > 100 {
			t.Fatal("split recursion did not terminate")
		}
		b := work[0]
		work = work[1:]

		switch d := p.Decide(b, 0, p.NewBackOff(), cause); d.Action {
		case Split:
			splits++
			work = append(work, b.Split()...)
		case Drop:
			drops += b.Size()
		default:
			t.Fatalf("unexpected action %v", d.Action)
		}
	}

	if splits != 1 {
		t.Errorf("splits = %d, want 1", splits)
	}
	if drops != 5 {
		t.Errorf("dropped records = %d, want 5", drops)
	}
}

func TestPolicy_RetryScheduleBounded(t *testing.T) {
	p := Policy{MaxAttempts: 2, Delay: 10 * time.Millisecond}
	schedule := p.NewBackOff()
	cause := errors.New("503")

	var got []Action
	for attempt := 0; attempt < 5; attempt++ {
		d := p.Decide(records(2), attempt, schedule, cause)
		got = append(got, d.Action)
		if d.Action == Drop {
			if !errors.Is(d.Reason, domain.ErrRetriesExhausted) {
				t.Errorf("Reason = %v, want ErrRetriesExhausted", d.Reason)
			}
			break
		}
		if d.Delay != 10*time.Millisecond {
			t.Errorf("attempt %d: Delay = %v, want 10ms", attempt, d.Delay)
		}
	}

	want := []Action{Retry, Retry, Drop}
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions = %v, want %v", got, want)
			break
		}
	}
}

func TestPolicy_NewBackOff(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{"split mode has no schedule", Policy{RetryIndividual: true, MaxAttempts: 3}, false},
		{"zero attempts has no schedule", Policy{}, false},
		{"bounded retry", Policy{MaxAttempts: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.NewBackOff() != nil; got != tt.want {
				t.Errorf("NewBackOff() != nil = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Drop, "drop"},
		{Split, "split"},
		{Retry, "retry"},
		{Action(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}
