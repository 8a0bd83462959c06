// fingerprint.go generates stable hashes for grouping similar reports.

package er2

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint generates a hash for grouping similar reports.
// The fingerprint is based on:
//   - service id and payload kind
//   - each exception level's class name, code, file and line
//   - or each error record's fatal flag, code, file and line
//
// It ignores variable data like timestamps, session ids, messages and the
// context sections.
func Fingerprint(report *Report) string {
	parts := []string{report.Authentication.ServiceID, report.Kind()}

	if report.Throwable != nil {
		for e := report.Throwable; e != nil; e = e.Previous {
			parts = append(parts, e.ClassName, strconv.Itoa(e.Code), e.File, strconv.Itoa(e.Line))
		}
	} else {
		for _, e := range report.Errors {
			parts = append(parts, strconv.FormatBool(e.Fatal), strconv.Itoa(e.Code), e.File, strconv.Itoa(e.Line))
		}
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

// Title is a one-line summary of the report's failure.
func Title(report *Report) string {
	if t := report.Throwable; t != nil {
		return t.ClassName + ": " + t.Message
	}
	switch len(report.Errors) {
	case 0:
		return "errors: none reported"
	case 1:
		return "error " + strconv.Itoa(report.Errors[0].Code) + ": " + report.Errors[0].Message
	default:
		return strconv.Itoa(len(report.Errors)) + " errors, first: " + report.Errors[0].Message
	}
}
