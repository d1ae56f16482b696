// Package files locates shipment workbooks in the input directory.
//
// Discovery lists .xlsx/.xlsm files newest first, skipping Office lock
// files, and resolves relative workbook names against the input directory
// so web clients can refer to a workbook by name.
package files
