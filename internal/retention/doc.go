// Package retention measures whether students who started attending in a
// period were still attending at a later checkpoint.
//
// Activity is month-granular: a student is active in a month when a
// non-vacation attendance record for that month has a positive percentage.
// A student's entry month is the first such month. Students who never
// attended have no entry month and are left out of every cohort.
//
// Retention is generous: a dropped student who attended again after the drop
// month counts as retained at every checkpoint.
//
// A checkpoint whose month has no attendance data for anyone in the class
// yields an invalid rate, meaning "not measurable yet" rather than 0%.
package retention
