// Package report renders analysis results for people: an HTML dashboard,
// a printable HTML report with PNG charts, and optionally a PDF of the
// report printed through headless Chrome.
//
// Templates are embedded in the binary, so a report renders the same on
// any machine regardless of the working directory.
package report
