package client

import (
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

// --------------------------------------------------------------------------
// Idempotency Classification
// --------------------------------------------------------------------------

// IsIdempotent reports whether retrying req cannot produce a different
// stored outcome than a single successful application. The classification
// is a pure function of the request content; the executor consults it once,
// before the first attempt.
//
// Reads are always idempotent. A mutation is idempotent only if every
// change is a SetCell with an explicit positive timestamp: a server
// assigned timestamp differs between attempts and a retried delete could
// remove cells written in between. Read-modify-write requests are never
// idempotent because re-applying a delta after a successful but
// unacknowledged attempt would double-apply it.
func IsIdempotent(req *common.Message) bool {
	switch req.MsgType {
	case common.MsgTMutateRow:
		return mutationsAreIdempotent(req.Mutations)

	case common.MsgTMutateRows:
		for _, entry := range req.Entries {
			if !mutationsAreIdempotent(entry.Mutations) {
				return false
			}
		}
		return true

	case common.MsgTCheckAndMutateRow:
		// The condition check itself is safe to repeat, only the writes of
		// the two branches matter
		return mutationsAreIdempotent(req.TrueMutations) &&
			mutationsAreIdempotent(req.FalseMutations)

	case common.MsgTReadModifyWriteRow:
		return false

	case common.MsgTReadRows, common.MsgTSampleRowKeys:
		return true

	default:
		return false
	}
}

// mutationsAreIdempotent reports whether every mutation in the list is a
// SetCell with an explicit positive timestamp. An empty list is vacuously
// idempotent.
func mutationsAreIdempotent(mutations []table.Mutation) bool {
	for _, m := range mutations {
		if m.SetCell == nil || m.SetCell.TimestampMicros <= 0 {
			return false
		}
	}
	return true
}
