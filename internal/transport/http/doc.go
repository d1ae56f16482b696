// Package http implements the HTTP handlers of the web mode. Handlers stay
// thin: they decode and validate requests, delegate to the job queue or
// the analysis service, and translate errors into RFC 7807 problem
// responses through the shared error handler.
//
// Routes served by this package:
//
//	GET    /api/v1/workbooks           list workbooks in the input directory
//	GET    /api/v1/sheets?file=        list the sheets of a workbook
//	POST   /api/v1/analyses            queue an analysis run (202)
//	GET    /api/v1/analyses            list recent runs (?status=&file=&limit=)
//	GET    /api/v1/analyses/{id}       run status, progress and result
//	DELETE /api/v1/analyses/{id}       cancel a pending or running run
//	GET    /reports/{id}/{artifact}    download a generated artifact
//	GET    /healthz                    liveness plus component stats
//
// Relative file names are resolved against the input directory.
//
// The WebSocket progress stream and /metrics are mounted by the app
// package.
package http
