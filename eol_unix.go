//go:build !windows

package uberlog

// eol is appended to every formatted record. It is fixed at compile time
// per platform, matching the original library's choice rather than being
// a runtime option.
const eol = "\n"
