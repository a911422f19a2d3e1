// Package textutil holds small string helpers used when rendering jobs in
// the terminal: title casing, width-limited truncation, and first-line
// extraction for multi-line error messages.
package textutil
