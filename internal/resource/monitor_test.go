package resource

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestDerivePressureTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		snap Snapshot
		want Pressure
	}{
		{"idle", Snapshot{TotalGB: 16, UsedGB: 4}, PressureNormal},
		{"seventy five percent", Snapshot{TotalGB: 16, UsedGB: 12}, PressureWarning},
		{"ninety percent", Snapshot{TotalGB: 16, UsedGB: 14.4}, PressureCritical},
		{"swap escalates to warning", Snapshot{TotalGB: 16, UsedGB: 4, SwapUsedGB: 0.6}, PressureWarning},
		{"swap escalates to critical", Snapshot{TotalGB: 16, UsedGB: 4, SwapUsedGB: 2.5}, PressureCritical},
		{"compressed escalates", Snapshot{TotalGB: 16, UsedGB: 4, CompressedGB: 3.5}, PressureWarning},
		{"swap never de-escalates", Snapshot{TotalGB: 16, UsedGB: 14.5, SwapUsedGB: 0.1}, PressureCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DerivePressure(tc.snap); got != tc.want {
				t.Fatalf("DerivePressure = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanLoad(t *testing.T) {
	mon := NewMonitor(Options{
		Sampler:             StaticSampler{Snapshot: Snapshot{TotalGB: 16, UsedGB: 8, AvailableGB: 8}},
		SafetyBufferGB:      2,
		ThermalThresholdPct: 85,
	})

	if ok, reason := mon.CanLoad(4); !ok {
		t.Fatalf("CanLoad(4) rejected: %s", reason)
	}
	if ok, _ := mon.CanLoad(7); ok {
		t.Fatal("CanLoad(7) admitted past safety buffer")
	}

	swapped := NewMonitor(Options{
		Sampler: StaticSampler{Snapshot: Snapshot{TotalGB: 16, UsedGB: 4, AvailableGB: 12, SwapUsedGB: 1.5}},
	})
	if ok, reason := swapped.CanLoad(1); ok || reason != "swap in use" {
		t.Fatalf("swapped CanLoad = (%v, %q), want rejection for swap", ok, reason)
	}
}

func TestPollFallsBackOnSamplerError(t *testing.T) {
	fallback := Snapshot{TotalGB: 32, UsedGB: 10, AvailableGB: 22}
	mon := NewMonitor(Options{
		Sampler:  StaticSampler{Err: errors.New("proc unavailable")},
		Fallback: fallback,
	})

	snap := mon.Poll()
	if !snap.Synthetic {
		t.Fatal("fallback snapshot not marked synthetic")
	}
	if snap.TotalGB != fallback.TotalGB {
		t.Fatalf("TotalGB = %v, want fallback %v", snap.TotalGB, fallback.TotalGB)
	}
}

func TestHistoryAndAlertsAreBounded(t *testing.T) {
	mon := NewMonitor(Options{
		Sampler:     StaticSampler{Snapshot: Snapshot{TotalGB: 16, UsedGB: 15, AvailableGB: 1}},
		HistorySize: 5,
		AlertLimit:  3,
	})
	for i := 0; i < 10; i++ {
		mon.Poll()
	}
	if got := len(mon.History()); got != 5 {
		t.Fatalf("history length = %d, want 5", got)
	}
	if got := len(mon.Alerts()); got != 3 {
		t.Fatalf("alert buffer length = %d, want 3", got)
	}
}

func TestAlertHandlerFires(t *testing.T) {
	mon := NewMonitor(Options{
		Sampler: StaticSampler{Snapshot: Snapshot{TotalGB: 16, UsedGB: 15, AvailableGB: 1}},
	})
	var seen []Alert
	mon.OnAlert(func(a Alert) { seen = append(seen, a) })
	mon.Poll()

	if len(seen) == 0 {
		t.Fatal("no alerts delivered to handler")
	}
	for _, a := range seen {
		if a.Metric == "" || a.Message == "" {
			t.Fatalf("alert missing fields: %+v", a)
		}
	}
}

func TestStartStopDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	mon := NewMonitor(Options{
		Sampler:      StaticSampler{Snapshot: Snapshot{TotalGB: 16, UsedGB: 4, AvailableGB: 12}},
		PollInterval: time.Millisecond,
	})
	mon.Start()
	time.Sleep(10 * time.Millisecond)
	mon.Stop()

	if len(mon.History()) == 0 {
		t.Fatal("timer polling recorded no snapshots")
	}
}

func TestParseMeminfo(t *testing.T) {
	text := "MemTotal:       16384000 kB\nMemAvailable:    8192000 kB\nSwapTotal:       2048000 kB\nSwapFree:        1024000 kB\n"
	fields, err := parseMeminfo(text)
	if err != nil {
		t.Fatalf("parseMeminfo: %v", err)
	}
	if fields["MemTotal"] != 16384000 || fields["SwapFree"] != 1024000 {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	if _, err := parseMeminfo("Garbage: x\n"); err == nil {
		t.Fatal("expected error for meminfo without MemTotal")
	}
}
