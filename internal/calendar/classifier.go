package calendar

import (
	"strconv"
	"strings"

	"signalboard/internal/model"
)

// Tone classifies how close an event is to the current time.
type Tone string

const (
	TonePast    Tone = "past"
	ToneNow     Tone = "now"
	ToneDefault Tone = "default"
)

const minutesPerDay = 24 * 60

// ParseLabelToMinutes converts a time label to minutes since midnight.
// Accepted shapes: "hh:mm" and "hh:mm:ss" (24-hour), and "h:mm am/pm"
// (12-hour, case and whitespace insensitive). Returns false for
// anything unparseable; callers degrade to the default tone instead of
// erroring.
func ParseLabelToMinutes(label string) (int, bool) {
	s := strings.ToLower(strings.ReplaceAll(label, " ", ""))
	if s == "" {
		return 0, false
	}

	meridiem := ""
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		meridiem = s[len(s)-2:]
		s = s[:len(s)-2]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if minute < 0 || minute > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		if meridiem != "" {
			return 0, false
		}
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return 0, false
		}
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "pm" {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return 0, false
	}

	return hour*60 + minute, true
}

// ToneFor classifies an event label against the current minute of day.
// A naive difference of more than 12 hours into the past means the event
// is actually upcoming just past midnight, so a full day is added before
// classifying.
func ToneFor(label string, nowMinutes, soonWindowMinutes int) Tone {
	event, ok := ParseLabelToMinutes(label)
	if !ok {
		return ToneDefault
	}

	diff := event - nowMinutes
	if diff < -minutesPerDay/2 {
		diff += minutesPerDay
	}

	switch {
	case diff < 0:
		return TonePast
	case diff <= soonWindowMinutes:
		return ToneNow
	default:
		return ToneDefault
	}
}

// GroupByMinute clusters events sharing the exact same time label, in
// first-seen order. Two differently formatted labels for the same
// instant stay separate. Cluster impact is the highest severity among
// members.
func GroupByMinute(events []model.NewsEvent) []model.NewsCluster {
	var clusters []model.NewsCluster
	index := make(map[string]int)

	for _, ev := range events {
		i, ok := index[ev.TimeLabel]
		if !ok {
			index[ev.TimeLabel] = len(clusters)
			clusters = append(clusters, model.NewsCluster{
				TimeLabel: ev.TimeLabel,
				Items:     []model.NewsEvent{ev},
				Impact:    ev.Impact,
			})
			continue
		}
		clusters[i].Items = append(clusters[i].Items, ev)
		if impactRank(ev.Impact) > impactRank(clusters[i].Impact) {
			clusters[i].Impact = ev.Impact
		}
	}
	return clusters
}

// FilterUpcoming drops events whose tone is past; now and default both
// stay visible.
func FilterUpcoming(events []model.NewsEvent, nowMinutes, soonWindowMinutes int) []model.NewsEvent {
	var out []model.NewsEvent
	for _, ev := range events {
		if ToneFor(ev.TimeLabel, nowMinutes, soonWindowMinutes) == TonePast {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func impactRank(impact model.Impact) int {
	switch impact {
	case model.ImpactHigh:
		return 3
	case model.ImpactMedium:
		return 2
	case model.ImpactLow:
		return 1
	}
	return 0
}
