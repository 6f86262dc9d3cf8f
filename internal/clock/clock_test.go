package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualClock_Now(t *testing.T) {
	vc := NewVirtualClock(epoch)
	if got := vc.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}
}

func TestVirtualClock_Advance(t *testing.T) {
	vc := NewVirtualClock(epoch)
	vc.Advance(90 * time.Second)

	want := epoch.Add(90 * time.Second)
	if got := vc.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestVirtualClock_Since(t *testing.T) {
	vc := NewVirtualClock(epoch)
	vc.Advance(time.Minute)

	if got := vc.Since(epoch); got != time.Minute {
		t.Errorf("Since(epoch) = %v, want %v", got, time.Minute)
	}
}

func TestVirtualClock_Set(t *testing.T) {
	vc := NewVirtualClock(epoch)
	target := epoch.Add(24 * time.Hour)
	vc.Set(target)

	if got := vc.Now(); !got.Equal(target) {
		t.Errorf("Now() after Set = %v, want %v", got, target)
	}
}

func TestRealClock_Now(t *testing.T) {
	rc := NewRealClock()
	before := time.Now()
	got := rc.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}
