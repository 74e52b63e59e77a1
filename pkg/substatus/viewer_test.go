package substatus

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeEvents(n int) []Event {
	out := make([]Event, n)
	for i := range out {
		out[i] = Event{
			ID:        fmt.Sprintf("evt-%03d", i),
			EventType: "DAYS_GRANTED",
			Metadata:  json.RawMessage(fmt.Sprintf(`{"days":%d}`, i)),
		}
	}
	return out
}

func TestViewerPagination(t *testing.T) {
	v := NewViewer(makeEvents(23))

	assert.Equal(t, 3, v.TotalPages())
	assert.Equal(t, 1, v.CurrentPage())
	assert.Len(t, v.Page(), 10)

	v.NextPage()
	assert.Equal(t, 2, v.CurrentPage())
	assert.Equal(t, "evt-010", v.Page()[0].ID)

	v.NextPage()
	assert.Len(t, v.Page(), 3)

	// Walking past the end clamps.
	v.NextPage()
	assert.Equal(t, 3, v.CurrentPage())

	v.SetPage(-4)
	assert.Equal(t, 1, v.CurrentPage())
}

func TestViewerPageSizes(t *testing.T) {
	v := NewViewer(makeEvents(60))

	v.SetPageSize(25)
	assert.Equal(t, 3, v.TotalPages())
	assert.Len(t, v.Page(), 25)

	v.SetPageSize(50)
	assert.Equal(t, 2, v.TotalPages())

	// Unknown sizes fall back to the default.
	v.SetPageSize(7)
	assert.Equal(t, 6, v.TotalPages())
	assert.Len(t, v.Page(), 10)
}

func TestViewerFilter(t *testing.T) {
	events := makeEvents(15)
	events = append(events,
		Event{ID: "s1", EventType: "SUSPENDED", Metadata: json.RawMessage(`{"reason":"late payment"}`)},
		Event{ID: "s2", EventType: "UNSUSPENDED"},
	)
	v := NewViewer(events)
	v.SetPage(2)

	// Filtering matches type and metadata, case-insensitively, and resets
	// to page one.
	v.SetFilter("SUSPEND")
	assert.Equal(t, 1, v.CurrentPage())
	assert.Len(t, v.Page(), 2)

	v.SetFilter("late PAYMENT")
	page := v.Page()
	assert.Len(t, page, 1)
	assert.Equal(t, "s1", page[0].ID)

	v.SetFilter("no such thing")
	assert.Empty(t, v.Page())
	assert.Equal(t, 1, v.TotalPages())

	v.SetFilter("")
	assert.Len(t, v.Page(), 10)
}

func TestViewerClampOnShrink(t *testing.T) {
	v := NewViewer(makeEvents(45))
	v.SetPage(5)
	assert.Equal(t, 5, v.CurrentPage())

	// Replacing the backing list with fewer events pulls the page back in
	// range.
	v.SetEvents(makeEvents(12))
	assert.Equal(t, 2, v.CurrentPage())
	assert.Len(t, v.Page(), 2)
}

func TestViewerEmpty(t *testing.T) {
	v := NewViewer(nil)
	assert.Equal(t, 1, v.TotalPages())
	assert.Empty(t, v.Page())
	v.PrevPage()
	assert.Equal(t, 1, v.CurrentPage())
}
