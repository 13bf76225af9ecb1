package calendar

import (
	"testing"

	"signalboard/internal/model"
)

func TestParseLabelToMinutes(t *testing.T) {
	cases := []struct {
		label string
		want  int
		ok    bool
	}{
		{"08:30", 510, true},
		{"08:30:15", 510, true},
		{"00:00", 0, true},
		{"23:59", 1439, true},
		{"02:00pm", 840, true},
		{"2:00 PM", 840, true},
		{"12:00am", 0, true},
		{"12:00pm", 720, true},
		{" 9:05 am ", 545, true},
		{"14:00", 840, true},
		{"24:00", 0, false},
		{"13:00pm", 0, false},
		{"0:00pm", 0, false},
		{"08:60", 0, false},
		{"08", 0, false},
		{"", 0, false},
		{"tentative", 0, false},
		{"08:30:15pm", 0, false},
	}

	for _, c := range cases {
		got, ok := ParseLabelToMinutes(c.label)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseLabelToMinutes(%q) = (%d,%v), want (%d,%v)", c.label, got, ok, c.want, c.ok)
		}
	}
}

func TestTwelveAndTwentyFourHourAgree(t *testing.T) {
	a, _ := ParseLabelToMinutes("02:00pm")
	b, _ := ParseLabelToMinutes("14:00")
	if a != b {
		t.Fatalf("02:00pm parsed as %d, 14:00 as %d", a, b)
	}
}

func TestToneForMidnightRollover(t *testing.T) {
	// now = 23:50, event at 00:10: raw diff is -1420, corrected to +20.
	now := 23*60 + 50
	if tone := ToneFor("00:10", now, 30); tone != ToneNow {
		t.Fatalf("tone = %q, want now", tone)
	}
}

func TestToneForPast(t *testing.T) {
	now := 10 * 60
	if tone := ToneFor("09:00", now, 30); tone != TonePast {
		t.Fatalf("tone = %q, want past", tone)
	}
}

func TestToneForBoundaries(t *testing.T) {
	now := 10 * 60
	if tone := ToneFor("10:00", now, 30); tone != ToneNow {
		t.Fatalf("zero diff tone = %q, want now", tone)
	}
	if tone := ToneFor("10:30", now, 30); tone != ToneNow {
		t.Fatalf("window edge tone = %q, want now", tone)
	}
	if tone := ToneFor("10:31", now, 30); tone != ToneDefault {
		t.Fatalf("past window tone = %q, want default", tone)
	}
	if tone := ToneFor("garbled", now, 30); tone != ToneDefault {
		t.Fatalf("unparseable tone = %q, want default", tone)
	}
}

func TestGroupByMinuteImpactAndOrder(t *testing.T) {
	events := []model.NewsEvent{
		{TimeLabel: "08:30", Name: "CPI", Impact: model.ImpactLow},
		{TimeLabel: "10:00", Name: "Speech", Impact: model.ImpactMedium},
		{TimeLabel: "08:30", Name: "NFP", Impact: model.ImpactHigh},
	}

	clusters := GroupByMinute(events)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].TimeLabel != "08:30" || clusters[1].TimeLabel != "10:00" {
		t.Fatalf("cluster order: %+v", clusters)
	}
	if len(clusters[0].Items) != 2 || clusters[0].Impact != model.ImpactHigh {
		t.Fatalf("08:30 cluster: %+v", clusters[0])
	}
}

func TestGroupByMinuteKeepsDistinctLabelsApart(t *testing.T) {
	// Same instant, different formatting: not merged.
	events := []model.NewsEvent{
		{TimeLabel: "14:00", Impact: model.ImpactLow},
		{TimeLabel: "02:00pm", Impact: model.ImpactLow},
	}
	if got := len(GroupByMinute(events)); got != 2 {
		t.Fatalf("expected 2 clusters for distinct labels, got %d", got)
	}
}

func TestFilterUpcomingDropsOnlyPast(t *testing.T) {
	now := 10 * 60
	events := []model.NewsEvent{
		{TimeLabel: "09:00"},  // past
		{TimeLabel: "10:15"},  // now
		{TimeLabel: "18:00"},  // default
		{TimeLabel: "opaque"}, // unparseable, shown
	}

	out := FilterUpcoming(events, now, 30)
	if len(out) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(out), out)
	}
	for _, ev := range out {
		if ev.TimeLabel == "09:00" {
			t.Fatalf("past event survived filter")
		}
	}
}
