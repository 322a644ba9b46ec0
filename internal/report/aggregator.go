package report

import "catkeygen/internal/resolver"

// NotFoundRow is one missing title in a list's not-found report.
type NotFoundRow struct {
	ISBN   string
	Title  string
	Author string
}

// ListReport accumulates outcomes for one bestseller list.
type ListReport struct {
	ListName string
	// Found holds CatKeys in first-seen order with per-list duplicates
	// dropped.
	Found []string
	// NotFound holds one row per missing book, never deduplicated:
	// every missing title is reported even when repeated.
	NotFound []NotFoundRow
}

// Aggregator collects resolution results into per-list and combined
// report structures. It is append-only and order-preserving: identical
// inputs always produce identical structures.
type Aggregator struct {
	order        []string
	lists        map[string]*listState
	combined     []string
	combinedSeen map[string]struct{}
}

type listState struct {
	report ListReport
	seen   map[string]struct{}
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		lists:        make(map[string]*listState),
		combinedSeen: make(map[string]struct{}),
	}
}

// Add records one terminal resolution result. Each result is consumed
// exactly once; results must be added in input order to keep report
// ordering deterministic.
func (a *Aggregator) Add(result resolver.Result) {
	state := a.listState(result.Book.ListName)
	if !result.Found {
		state.report.NotFound = append(state.report.NotFound, NotFoundRow{
			ISBN:   result.Book.ISBN13,
			Title:  result.Book.Title,
			Author: result.Book.Author,
		})
		return
	}
	if _, dup := state.seen[result.CatKey]; !dup {
		state.seen[result.CatKey] = struct{}{}
		state.report.Found = append(state.report.Found, result.CatKey)
	}
	if _, dup := a.combinedSeen[result.CatKey]; !dup {
		a.combinedSeen[result.CatKey] = struct{}{}
		a.combined = append(a.combined, result.CatKey)
	}
}

func (a *Aggregator) listState(listName string) *listState {
	if state, ok := a.lists[listName]; ok {
		return state
	}
	state := &listState{seen: make(map[string]struct{})}
	state.report.ListName = listName
	a.lists[listName] = state
	a.order = append(a.order, listName)
	return state
}

// Lists returns the accumulated per-list reports in first-appearance
// order.
func (a *Aggregator) Lists() []ListReport {
	reports := make([]ListReport, 0, len(a.order))
	for _, name := range a.order {
		reports = append(reports, a.lists[name].report)
	}
	return reports
}

// Combined returns all found CatKeys deduplicated across lists in
// first-seen order.
func (a *Aggregator) Combined() []string {
	combined := make([]string, len(a.combined))
	copy(combined, a.combined)
	return combined
}

// TotalFound counts unique CatKeys per list, summed over lists.
func (a *Aggregator) TotalFound() int {
	total := 0
	for _, name := range a.order {
		total += len(a.lists[name].report.Found)
	}
	return total
}

// TotalNotFound counts not-found rows across all lists.
func (a *Aggregator) TotalNotFound() int {
	total := 0
	for _, name := range a.order {
		total += len(a.lists[name].report.NotFound)
	}
	return total
}
