package intake

import (
	"sort"
	"strings"
)

type Count struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Summary is the dashboard view of a snapshot.
type Summary struct {
	Total        int     `json:"total" yaml:"total"`
	StatusLabel  string  `json:"status_label" yaml:"status_label"`
	StatusCounts []Count `json:"status_counts" yaml:"status_counts"`
	GroupLabel   string  `json:"group_label" yaml:"group_label"`
	TopGroups    []Count `json:"top_groups" yaml:"top_groups"`
}

func (s Summary) StatusCount(status string) int {
	for _, item := range s.StatusCounts {
		if item.Value == status {
			return item.Count
		}
	}
	return 0
}

// Aggregate counts records per status and selects the top-K values of the
// layout's grouping column. Layout statuses are always listed, in layout
// order, followed by any other status value in first-seen order. Blank
// cells are not counted. Group ties keep first-seen order.
func Aggregate(snapshot Snapshot, layout Layout) Summary {
	summary := Summary{
		Total:       len(snapshot.Records),
		StatusLabel: layout.Label(FieldStatus),
		GroupLabel:  layout.Label(layout.GroupField),
	}

	statusCounts := valueCounts(snapshot.Records, FieldStatus)
	listed := make(map[string]struct{}, len(layout.Statuses))
	summary.StatusCounts = make([]Count, 0, len(layout.Statuses)+len(statusCounts))
	for _, status := range layout.Statuses {
		status = strings.TrimSpace(status)
		listed[status] = struct{}{}
		summary.StatusCounts = append(summary.StatusCounts, Count{Value: status, Count: countOf(statusCounts, status)})
	}
	for _, item := range statusCounts {
		if _, ok := listed[item.Value]; ok {
			continue
		}
		summary.StatusCounts = append(summary.StatusCounts, item)
	}

	summary.TopGroups = topK(valueCounts(snapshot.Records, layout.GroupField), layout.TopK)
	return summary
}

// valueCounts returns one Count per distinct non-blank value, in first-seen order.
func valueCounts(records []Record, field Field) []Count {
	index := make(map[string]int)
	counts := make([]Count, 0)
	for _, record := range records {
		value := strings.TrimSpace(record.Value(field))
		if value == "" {
			continue
		}
		if i, ok := index[value]; ok {
			counts[i].Count++
			continue
		}
		index[value] = len(counts)
		counts = append(counts, Count{Value: value, Count: 1})
	}
	return counts
}

func topK(counts []Count, k int) []Count {
	sorted := make([]Count, len(counts))
	copy(sorted, counts)
	// Stable keeps first-seen order among equal counts.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

func countOf(counts []Count, value string) int {
	for _, item := range counts {
		if item.Value == value {
			return item.Count
		}
	}
	return 0
}

// GroupBar is one top group scaled against the largest group count.
type GroupBar struct {
	Value   string
	Count   int
	Percent int
}

// Cells is the bar length in a chart width cells wide. A non-zero count
// always gets at least one cell.
func (b GroupBar) Cells(width int) int {
	if width <= 0 || b.Count <= 0 {
		return 0
	}
	cells := b.Percent * width / 100
	if cells < 1 {
		cells = 1
	}
	return cells
}

// GroupBars returns TopGroups with each count as a percentage of the largest.
func (s Summary) GroupBars() []GroupBar {
	maxCount := 0
	for _, item := range s.TopGroups {
		if item.Count > maxCount {
			maxCount = item.Count
		}
	}

	bars := make([]GroupBar, 0, len(s.TopGroups))
	for _, item := range s.TopGroups {
		percent := 0
		if maxCount > 0 {
			percent = item.Count * 100 / maxCount
		}
		bars = append(bars, GroupBar{Value: item.Value, Count: item.Count, Percent: percent})
	}
	return bars
}
