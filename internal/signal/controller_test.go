package signal

import (
	"errors"
	"testing"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

func mustNew(t *testing.T, approaches []core.EdgeID, timing Timing) *Controller {
	t.Helper()
	c, err := New(2, approaches, timing)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func lights(t *testing.T, c *Controller) (core.LightState, core.LightState) {
	t.Helper()
	a, err := c.Signal(10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Signal(20)
	if err != nil {
		t.Fatal(err)
	}
	return a, b
}

func TestNewStartsRed(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10, 20}, DefaultTiming())
	a, b := lights(t, c)
	if a != core.Red || b != core.Red {
		t.Errorf("fresh controller lights = %v, %v", a, b)
	}
	if _, ok := c.ActiveApproach(); ok {
		t.Error("no approach should be active before the first phase")
	}
	if c.Phase() != core.Red {
		t.Errorf("Phase = %v, want RED", c.Phase())
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		approaches []core.EdgeID
		timing     Timing
		wantErr    error
	}{
		{"ok", []core.EdgeID{1, 2}, DefaultTiming(), nil},
		{"empty", nil, DefaultTiming(), nil},
		{"duplicate", []core.EdgeID{1, 2, 1}, DefaultTiming(), ErrDuplicateApproach},
		{"zero green", []core.EdgeID{1}, Timing{Green: 0, Yellow: 3}, ErrInvalidTiming},
		{"negative yellow", []core.EdgeID{1}, Timing{Green: 5, Yellow: -1}, ErrInvalidTiming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(1, tt.approaches, tt.timing)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdvancePhaseCycle(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10, 20}, Timing{Green: 15, Yellow: 3})

	// want[i] is the state after call i+1.
	type state struct{ a, b core.LightState }
	checks := map[int]state{
		1:  {core.Green, core.Red},
		2:  {core.Green, core.Red},
		15: {core.Green, core.Red},
		16: {core.Yellow, core.Red},
		17: {core.Yellow, core.Red},
		18: {core.Yellow, core.Red},
		19: {core.Red, core.Green},
		34: {core.Red, core.Yellow},
		36: {core.Red, core.Yellow},
		37: {core.Green, core.Red},
	}

	for call := 1; call <= 37; call++ {
		c.AdvancePhase()
		want, ok := checks[call]
		if !ok {
			continue
		}
		a, b := lights(t, c)
		if a != want.a || b != want.b {
			t.Errorf("after call %d: lights = %v/%v, want %v/%v", call, a, b, want.a, want.b)
		}
	}
}

func TestAdvancePhasePeriodic(t *testing.T) {
	timing := Timing{Green: 4, Yellow: 2}
	c := mustNew(t, []core.EdgeID{10, 20}, timing)
	c.AdvancePhase()

	period := timing.Cycle() * 2
	var first []core.LightState
	for i := 0; i < period; i++ {
		c.AdvancePhase()
		a, _ := lights(t, c)
		first = append(first, a)
	}
	for i := 0; i < period; i++ {
		c.AdvancePhase()
		a, _ := lights(t, c)
		if a != first[i] {
			t.Fatalf("step %d of second period: %v, want %v", i, a, first[i])
		}
	}
}

func TestExactlyOneNonRed(t *testing.T) {
	c := mustNew(t, []core.EdgeID{1, 2, 3}, Timing{Green: 2, Yellow: 1})
	for call := 1; call <= 30; call++ {
		c.AdvancePhase()
		nonRed := 0
		for _, a := range c.Approaches() {
			if s, _ := c.Signal(a); s != core.Red {
				nonRed++
			}
		}
		if nonRed != 1 {
			t.Fatalf("after call %d: %d approaches not RED", call, nonRed)
		}
	}
}

func TestSingleApproachReturnsToGreen(t *testing.T) {
	c := mustNew(t, []core.EdgeID{7}, Timing{Green: 1, Yellow: 1})
	want := []core.LightState{core.Green, core.Yellow, core.Green, core.Yellow}
	for i, w := range want {
		c.AdvancePhase()
		if s, _ := c.Signal(7); s != w {
			t.Errorf("call %d: %v, want %v", i+1, s, w)
		}
	}
}

func TestAdvancePhaseNoApproaches(t *testing.T) {
	c := mustNew(t, nil, DefaultTiming())
	for i := 0; i < 5; i++ {
		c.AdvancePhase()
	}
	if _, ok := c.ActiveApproach(); ok {
		t.Error("empty controller should never activate")
	}
	if c.TicksInPhase() != 0 {
		t.Errorf("TicksInPhase = %d, want 0", c.TicksInPhase())
	}
}

func TestQueueFIFO(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10, 20}, DefaultTiming())

	if err := c.Enqueue(100, 20); err != nil {
		t.Fatal(err)
	}
	if err := c.Enqueue(200, 20); err != nil {
		t.Fatal(err)
	}

	q, err := c.Queue(20)
	if err != nil || len(q) != 2 || q[0] != 100 || q[1] != 200 {
		t.Fatalf("Queue(20) = %v, %v", q, err)
	}
	if c.QueueLen(20) != 2 || c.QueueLen(10) != 0 {
		t.Errorf("QueueLen = %d/%d", c.QueueLen(20), c.QueueLen(10))
	}

	if v, ok := c.Front(20); !ok || v != 100 {
		t.Errorf("Front = %d, %v", v, ok)
	}
	if v, ok := c.Dequeue(20); !ok || v != 100 {
		t.Errorf("first Dequeue = %d, %v; want 100", v, ok)
	}
	if v, ok := c.Dequeue(20); !ok || v != 200 {
		t.Errorf("second Dequeue = %d, %v; want 200", v, ok)
	}
	if _, ok := c.Dequeue(20); ok {
		t.Error("Dequeue on empty queue should report false")
	}
	if _, ok := c.Front(10); ok {
		t.Error("Front on empty queue should report false")
	}
}

func TestQueueIsACopy(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10}, DefaultTiming())
	_ = c.Enqueue(1, 10)
	q, _ := c.Queue(10)
	q[0] = 99
	if v, _ := c.Front(10); v != 1 {
		t.Errorf("caller mutated internal queue: front = %d", v)
	}
}

func TestRemove(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10}, DefaultTiming())
	for _, v := range []core.VehicleID{1, 2, 3} {
		_ = c.Enqueue(v, 10)
	}
	if !c.Remove(2, 10) {
		t.Fatal("Remove(2) should succeed")
	}
	if c.Remove(2, 10) || c.Remove(1, 99) {
		t.Error("Remove of absent vehicle or approach should fail")
	}
	q, _ := c.Queue(10)
	if len(q) != 2 || q[0] != 1 || q[1] != 3 {
		t.Errorf("queue after Remove = %v", q)
	}
}

func TestUnknownApproach(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10, 20}, DefaultTiming())
	c.AdvancePhase()

	if _, err := c.Signal(30); !errors.Is(err, ErrUnknownApproach) {
		t.Errorf("Signal(30) error = %v", err)
	}
	if _, err := c.Queue(30); !errors.Is(err, ErrUnknownApproach) {
		t.Errorf("Queue(30) error = %v", err)
	}
	if err := c.Enqueue(1, 30); !errors.Is(err, ErrUnknownApproach) {
		t.Errorf("Enqueue(30) error = %v", err)
	}
	if _, ok := c.Dequeue(30); ok {
		t.Error("Dequeue(30) should report false")
	}
}

func TestSnapshot(t *testing.T) {
	c := mustNew(t, []core.EdgeID{10, 20}, DefaultTiming())
	c.AdvancePhase()
	_ = c.Enqueue(5, 20)
	_ = c.Enqueue(6, 20)

	v := c.Snapshot()
	if v.Node != 2 || v.Active == nil || *v.Active != 10 {
		t.Fatalf("snapshot header = %+v", v)
	}
	if v.Approaches[0].Light != core.Green || v.Approaches[1].Light != core.Red {
		t.Errorf("snapshot lights = %+v", v.Approaches)
	}
	if v.QueueLen(20) != 2 || v.TotalQueued() != 2 {
		t.Errorf("snapshot queues = %+v", v.Approaches)
	}

	_, _ = c.Dequeue(20)
	if v.QueueLen(20) != 2 {
		t.Error("snapshot shares state with the controller")
	}
}
