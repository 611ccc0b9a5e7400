package schedule

import "time"

// Catalog is the fixed, ordered list of bookable time-of-day labels.
// It is a pure function of the clinic opening hours and is rebuilt at startup.
type Catalog struct {
	slots []string
	index map[string]int
}

// NewCatalog generates labels from openHour to closeHour inclusive at the
// given granularity. Hours use the 24-hour clock; labels are rendered on the
// 12-hour clock, e.g. 15 -> "3:00 PM".
func NewCatalog(openHour, closeHour, slotMinutes int) *Catalog {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	var slots []string
	for m := openHour * 60; m <= closeHour*60; m += slotMinutes {
		t := time.Date(2000, 1, 1, m/60, m%60, 0, 0, time.UTC)
		slots = append(slots, t.Format("3:04 PM"))
	}
	return newCatalog(slots)
}

// NewCatalogFromSlots builds a catalog from explicit labels, preserving order.
func NewCatalogFromSlots(slots []string) *Catalog {
	return newCatalog(append([]string(nil), slots...))
}

func newCatalog(slots []string) *Catalog {
	index := make(map[string]int, len(slots))
	for i, s := range slots {
		index[s] = i
	}
	return &Catalog{slots: slots, index: index}
}

// Slots returns a copy of the ordered labels.
func (c *Catalog) Slots() []string {
	return append([]string(nil), c.slots...)
}

// Contains reports whether label is a catalog entry.
func (c *Catalog) Contains(label string) bool {
	_, ok := c.index[label]
	return ok
}

// Remaining returns the catalog entries not present in booked, preserving
// catalog order. Labels outside the catalog are ignored.
func (c *Catalog) Remaining(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	remaining := make([]string, 0, len(c.slots))
	for _, s := range c.slots {
		if _, ok := taken[s]; ok {
			continue
		}
		remaining = append(remaining, s)
	}
	return remaining
}

func (c *Catalog) Len() int {
	return len(c.slots)
}
