// Package core runs dataset uploads on behalf of the HTTP server: it drives
// the ingestion pipeline under a concurrency limit, records the result, and
// publishes the dataset to the content store and the registry.
//
// # Error Codes Reference
//
// Errors shown to users carry a code that support staff can look up here.
// Codes are grouped by category.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "exceeds maximum"
//	FILE002 - File content does not match its extension
//	          Patterns: "file format validation failed"
//	FILE003 - File is not UTF-8 text
//	          Patterns: "invalid utf-8"
//	FILE004 - No file in the request
//	          Patterns: "no file provided"
//	FILE005 - Empty file
//	          Patterns: "file is empty"
//	FILE006 - Extension not accepted
//	          Patterns: "not allowed"
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - CSV could not be read     Patterns: "invalid csv format"
//	PARSE002 - Workbook could not be read Patterns: "invalid xlsx format"
//	PARSE003 - JSON could not be read    Patterns: "invalid json format"
//	PARSE004 - JSON is not a record list Patterns: "unsupported json structure"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy          Patterns: "too many concurrent uploads"
//	UPL004 - Request cancelled    Patterns: "context canceled"
//	UPL005 - Request timeout      Patterns: "context deadline exceeded"
//	UPL006 - Bad upload request   Patterns: "invalid upload request"
//
// # Dataset and Storage Errors (DS001-DS099, STO001-STO099, DB001-DB099)
//
//	DS001  - Dataset not found          Patterns: "dataset not found"
//	DS002  - Invalid list query         Patterns: "invalid sort field", "invalid list query"
//	DS003  - Malformed dataset id       Patterns: "invalid dataset id"
//	DS004  - Dataset not yet published  Patterns: "not published yet"
//	STO001 - Content store unavailable  Patterns: "content store"
//	STO002 - Registry unavailable       Patterns: "registry"
//	DB004  - Database unreachable       Patterns: "connection refused"
//	DB006  - Database timeout           Patterns: "timeout"
//
// # Rate Limiting (RATE001) and Default (ERR000)
//
//	RATE001 - Too many requests         Patterns: "rate limit"
//	ERR000  - Anything else; check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns precede general ones. A
// validation error that lists several problems maps to the first listed.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Reference for support
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered: the first pattern contained in the error text wins.
var errorPatterns = []errorPattern{
	// File validation (FILE001-FILE006)
	{
		pattern: "exceeds maximum",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the dataset into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "not allowed",
		msg: UserMessage{
			Message: "This file type is not accepted",
			Action:  "Upload a .csv, .xlsx or .json file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file that contains a header and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid utf-8",
		msg: UserMessage{
			Message: "File contains characters that are not UTF-8",
			Action:  "Save the file with UTF-8 encoding and upload it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "file format validation failed",
		msg: UserMessage{
			Message: "File content does not match its type",
			Action:  "Check that the file opens correctly and has a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was attached",
			Action:  "Select a dataset file to upload",
			Code:    "FILE004",
		},
	},

	// Parsing (PARSE001-PARSE004)
	{
		pattern: "unsupported json structure",
		msg: UserMessage{
			Message: "JSON must be a list of records or an object of columns",
			Action:  "Export the data as an array of objects",
			Code:    "PARSE004",
		},
	},
	{
		pattern: "invalid csv format",
		msg: UserMessage{
			Message: "The CSV file could not be read",
			Action:  "Ensure every row has the same number of fields as the header",
			Code:    "PARSE001",
		},
	},
	{
		pattern: "invalid xlsx format",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Save the workbook as .xlsx and upload it again",
			Code:    "PARSE002",
		},
	},
	{
		pattern: "invalid json format",
		msg: UserMessage{
			Message: "The JSON file could not be read",
			Action:  "Check the file for syntax errors",
			Code:    "PARSE003",
		},
	},

	// Upload process (UPL002-UPL006)
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many uploads in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "invalid upload request",
		msg: UserMessage{
			Message: "Upload details are incomplete or invalid",
			Action:  "Provide a title and a non-negative price",
			Code:    "UPL006",
		},
	},

	// Datasets and collaborators (DS, STO, DB)
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "Check the dataset id",
			Code:    "DS001",
		},
	},
	{
		pattern: "invalid sort field",
		msg: UserMessage{
			Message: "Datasets cannot be sorted by that field",
			Action:  "Sort by created_at, price, quality_score or title",
			Code:    "DS002",
		},
	},
	{
		pattern: "invalid list query",
		msg: UserMessage{
			Message: "The dataset query is invalid",
			Action:  "Check the page, price and sort parameters",
			Code:    "DS002",
		},
	},
	{
		pattern: "not published yet",
		msg: UserMessage{
			Message: "This dataset has not been published yet",
			Action:  "Try again once publishing has completed",
			Code:    "DS004",
		},
	},
	{
		pattern: "invalid dataset id",
		msg: UserMessage{
			Message: "That is not a valid dataset id",
			Action:  "Use the id returned when the dataset was uploaded",
			Code:    "DS003",
		},
	},
	{
		pattern: "content store",
		msg: UserMessage{
			Message: "Dataset storage is unavailable",
			Action:  "Your dataset was saved and will be published automatically",
			Code:    "STO001",
		},
	},
	{
		pattern: "registry",
		msg: UserMessage{
			Message: "Dataset registry is unavailable",
			Action:  "Your dataset was saved and will be registered automatically",
			Code:    "STO002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It
// returns the zero UserMessage for nil and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with the message
// shown to users.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
