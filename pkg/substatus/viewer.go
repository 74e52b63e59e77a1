package substatus

import "strings"

// Allowed page sizes for the event history view.
var pageSizes = map[int]bool{10: true, 25: true, 50: true}

const defaultPageSize = 10

// Viewer filters and paginates an already-fetched event history entirely
// client-side. The current page clamps whenever the filtered set shrinks
// beneath it.
type Viewer struct {
	events   []Event
	query    string
	pageSize int
	page     int // 1-based
}

func NewViewer(events []Event) *Viewer {
	return &Viewer{
		events:   events,
		pageSize: defaultPageSize,
		page:     1,
	}
}

// SetEvents replaces the backing list, e.g. after a refetch.
func (v *Viewer) SetEvents(events []Event) {
	v.events = events
	v.clamp()
}

// SetFilter applies a case-insensitive substring filter over event type and
// metadata, and resets to the first page.
func (v *Viewer) SetFilter(query string) {
	v.query = strings.ToLower(strings.TrimSpace(query))
	v.page = 1
}

// SetPageSize accepts 10, 25 or 50; anything else falls back to 10.
func (v *Viewer) SetPageSize(size int) {
	if !pageSizes[size] {
		size = defaultPageSize
	}
	v.pageSize = size
	v.clamp()
}

func (v *Viewer) SetPage(page int) {
	v.page = page
	v.clamp()
}

func (v *Viewer) NextPage() { v.SetPage(v.page + 1) }
func (v *Viewer) PrevPage() { v.SetPage(v.page - 1) }

func (v *Viewer) CurrentPage() int { return v.page }

func (v *Viewer) filtered() []Event {
	if v.query == "" {
		return v.events
	}
	out := make([]Event, 0, len(v.events))
	for _, event := range v.events {
		haystack := strings.ToLower(event.EventType + " " + string(event.Metadata))
		if strings.Contains(haystack, v.query) {
			out = append(out, event)
		}
	}
	return out
}

func (v *Viewer) TotalPages() int {
	n := len(v.filtered())
	if n == 0 {
		return 1
	}
	return (n + v.pageSize - 1) / v.pageSize
}

func (v *Viewer) clamp() {
	if v.page < 1 {
		v.page = 1
	}
	if total := v.TotalPages(); v.page > total {
		v.page = total
	}
}

// Page returns the events visible on the current page.
func (v *Viewer) Page() []Event {
	v.clamp()
	filtered := v.filtered()

	start := (v.page - 1) * v.pageSize
	if start >= len(filtered) {
		return []Event{}
	}
	end := start + v.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}
