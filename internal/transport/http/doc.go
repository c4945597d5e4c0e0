// Package http exposes the gradebook over a JSON API.
//
// Handlers stay thin. They parse path, query and body input, call a
// service, and render the result with chi/render. Every failure goes
// through errors.ErrorHandler so clients always receive RFC 7807 problem
// details.
//
// Routes (mounted under /api by the application):
//
//	GET    /classes                                 list classes
//	POST   /classes                                 create a class
//	GET    /classes/{classID}                       one class
//	PUT    /classes/{classID}                       update a class
//	GET    /classes/{classID}/students              students (?include_dropped=true)
//	POST   /classes/{classID}/students              add a student
//	GET    /classes/{classID}/roster                ranked roster (?format=json|csv|xlsx)
//	GET    /classes/{classID}/retention             retention report (?year=2024-2025)
//	PUT    /classes/{classID}/unit-tests            rename a unit-test column
//	POST   /classes/{classID}/imports               upload a spreadsheet (multipart)
//	GET    /classes/{classID}/imports/kinds         accepted import kinds
//	GET    /students/{studentID}                    one student with metrics
//	PUT    /students/{studentID}                    edit name or enrollment date
//	GET    /students/{studentID}/history            every stored record
//	POST   /students/{studentID}/drop               mark dropped
//	POST   /students/{studentID}/restore            re-activate, optionally moving class
//	PUT    /students/{studentID}/attendance/{month} set or clear a vacation month
//	GET    /health, /health/ready, /health/live, /version
package http
