package service

import (
	"github.com/pharaohsclub/treasury/internal/domain"
)

// Request lifecycle. Completed and Rejected are terminal; Suspended is a
// parking state the admin can still resolve either way.
var requestTransitions = map[domain.RequestStatus]map[domain.RequestStatus]struct{}{
	domain.RequestPending: {
		domain.RequestCompleted: {},
		domain.RequestRejected:  {},
		domain.RequestSuspended: {},
	},
	domain.RequestSuspended: {
		domain.RequestCompleted: {},
		domain.RequestRejected:  {},
	},
	domain.RequestCompleted: {},
	domain.RequestRejected:  {},
}

// expectedBefore lists every status from which next is reachable. The
// repository uses it as the compare-and-swap precondition, so a stale
// read can never complete an already-resolved request.
func expectedBefore(next domain.RequestStatus) []domain.RequestStatus {
	var out []domain.RequestStatus
	for current, nexts := range requestTransitions {
		if _, ok := nexts[next]; ok {
			out = append(out, current)
		}
	}
	return out
}
