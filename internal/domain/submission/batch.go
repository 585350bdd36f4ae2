package submission

import (
	"sort"
	"time"

	"navgate/internal/core/id"
)

// maxBatchSize is the authority-imposed cap on invoices per remote call.
const maxBatchSize = 100

// windowGap bounds the spread of one recovery query: consecutive send
// times more than this far apart go to separate windows, keeping each
// transaction-list query's date range narrow.
const windowGap = 5 * time.Minute

// recoveryThreshold is the authority's processing SLA. Timed-out
// transactions younger than this are left alone; the authority may still
// be processing them.
const recoveryThreshold = 6 * time.Minute

// windowPadding widens a recovery window's upper bound so submissions
// registered slightly after our recorded send time are still listed.
const windowPadding = 7 * time.Minute

// groupByCredentials partitions transactions by credential set. The
// partition is stable: within each group the input order is preserved.
func groupByCredentials(trs []*Transaction) [][]*Transaction {
	var order []id.ID
	groups := map[id.ID][]*Transaction{}
	for _, tr := range trs {
		if _, ok := groups[tr.CredentialsID]; !ok {
			order = append(order, tr.CredentialsID)
		}
		groups[tr.CredentialsID] = append(groups[tr.CredentialsID], tr)
	}
	out := make([][]*Transaction, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

// chunk splits a group into sub-batches of at most maxBatchSize, preserving
// relative order.
func chunk(trs []*Transaction) [][]*Transaction {
	var out [][]*Transaction
	for len(trs) > maxBatchSize {
		out = append(out, trs[:maxBatchSize])
		trs = trs[maxBatchSize:]
	}
	if len(trs) > 0 {
		out = append(out, trs)
	}
	return out
}

// recoveryWindow is one bounded date range of timed-out transactions.
type recoveryWindow struct {
	from time.Time
	to   time.Time
	trs  []*Transaction
}

// timeWindows sorts timed-out transactions by send time and splits them
// into windows with at most windowGap between consecutive send times.
func timeWindows(trs []*Transaction) []recoveryWindow {
	sorted := make([]*Transaction, 0, len(trs))
	for _, tr := range trs {
		if tr.SendTime != nil {
			sorted = append(sorted, tr)
		}
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].SendTime.Before(*sorted[b].SendTime)
	})

	var windows []recoveryWindow
	for _, tr := range sorted {
		last := len(windows) - 1
		if last >= 0 && tr.SendTime.Sub(*windows[last].trs[len(windows[last].trs)-1].SendTime) <= windowGap {
			windows[last].trs = append(windows[last].trs, tr)
			windows[last].to = tr.SendTime.Add(windowPadding)
			continue
		}
		windows = append(windows, recoveryWindow{
			from: *tr.SendTime,
			to:   tr.SendTime.Add(windowPadding),
			trs:  []*Transaction{tr},
		})
	}
	return windows
}
