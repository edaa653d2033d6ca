package overlay

import "testing"

func TestLoopTransitions(t *testing.T) {
	var l Loop
	steps := []struct {
		name    string
		op      func() bool
		changed bool
		want    LoopState
	}{
		{"pause while idle", l.Pause, false, Idle},
		{"resume while idle", l.Resume, false, Idle},
		{"start", l.Start, true, Running},
		{"start twice", l.Start, false, Running},
		{"pause", l.Pause, true, Paused},
		{"start while paused", l.Start, false, Paused},
		{"resume", l.Resume, true, Running},
		{"stop", l.Stop, true, Idle},
		{"stop twice", l.Stop, false, Idle},
	}

	for _, s := range steps {
		if got := s.op(); got != s.changed {
			t.Errorf("%s: changed = %v, want %v", s.name, got, s.changed)
		}
		if l.State() != s.want {
			t.Errorf("%s: state = %v, want %v", s.name, l.State(), s.want)
		}
	}
}
