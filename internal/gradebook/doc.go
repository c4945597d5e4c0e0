// Package gradebook turns a student's raw history into derived statistics and
// ranks a class.
//
// # Aggregation
//
// Aggregate filters a History to records on or after the student's
// enrollment date (attendance compares at month granularity), then computes
// averages, most-recent CASAS scores, progress toward the class targets,
// completeness, and the weighted overall score.
//
// Progress is computed from the most recent valid score, not the average, so
// it reflects whether the student is ready to advance now.
//
// # Ranking
//
// RankClass aggregates every student and orders complete students by overall
// score, descending. Incomplete students follow, unranked. Ranks are dense and
// 1-based. Equal scores are ordered by name (case-insensitive) and then id so
// the output does not depend on input order.
package gradebook
