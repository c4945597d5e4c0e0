package store

import (
	"sort"

	"gradebook/pkg/contracts/domain"
)

// Merge combines two copies of a record set. Records are matched by Key;
// when both sides hold a record the one modified last wins, and local wins
// a tie. The result is ordered by key.
func Merge[T domain.Versioned](local, remote []T) []T {
	byKey := make(map[string]T, len(local)+len(remote))
	for _, r := range local {
		byKey[r.Key()] = r
	}
	for _, r := range remote {
		cur, ok := byKey[r.Key()]
		if !ok || r.LastModified().After(cur.LastModified()) {
			byKey[r.Key()] = r
		}
	}

	out := make([]T, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// MergeSnapshots merges every record type of two snapshots. TakenAt is the
// later of the two.
func MergeSnapshots(local, remote Snapshot) Snapshot {
	taken := local.TakenAt
	if remote.TakenAt.After(taken) {
		taken = remote.TakenAt
	}
	return Snapshot{
		TakenAt:    taken,
		Classes:    Merge(local.Classes, remote.Classes),
		Students:   Merge(local.Students, remote.Students),
		CasasTests: Merge(local.CasasTests, remote.CasasTests),
		UnitTests:  Merge(local.UnitTests, remote.UnitTests),
		Attendance: Merge(local.Attendance, remote.Attendance),
		Tutoring:   Merge(local.Tutoring, remote.Tutoring),
	}
}
