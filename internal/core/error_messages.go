package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Ingest errors carry their own precise message (which names the offending
// line or value); the catalogue adds a code and a suggested action. All other
// errors are matched against known technical patterns.
//
//	FILE001 - Empty upload
//	FILE002 - Unsupported file extension
//	FILE003 - File too large
//	FILE004 - No file provided
//	VAL001  - Malformed record (missing quotes or fields)
//	VAL002  - Invalid name format
//	VAL003  - Blank mandatory field
//	VAL004  - Invalid credit limit
//	VAL005  - Invalid date
//	DB001-DB004 - Database connectivity and contention
//	UPL001-UPL003 - Upload gate, cancellation, timeout
//	ERR000  - Unknown

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// kindMessages holds the code and action for each ingest error kind.
// Message is filled from the error itself.
var kindMessages = map[ErrorKind]UserMessage{
	KindEmptyUpload: {
		Action: "Choose a non-empty .csv or .prn file",
		Code:   "FILE001",
	},
	KindUnsupportedExtension: {
		Action: "Upload a .csv or .prn file",
		Code:   "FILE002",
	},
	KindMalformedRecord: {
		Action: "Quote the Name column and provide all six columns",
		Code:   "VAL001",
	},
	KindInvalidNameFormat: {
		Action: "Write names as \"Lastname, Firstname\"",
		Code:   "VAL002",
	},
	KindBlankField: {
		Action: "Fill in every column of the line",
		Code:   "VAL003",
	},
	KindInvalidCreditLimit: {
		Action: "Use a plain decimal number for Credit Limit",
		Code:   "VAL004",
	},
	KindInvalidDate: {
		Action: "Use an existing date in the configured format",
		Code:   "VAL005",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a .csv or .prn file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "Record not found",
			Action:  "Verify the identifier is correct",
			Code:    "DB004",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Another upload is being processed",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "UPL003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Ingest errors keep their own message; everything else is matched against
// errorPatterns and falls back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ie *IngestError
	if errors.As(err, &ie) {
		msg, ok := kindMessages[ie.Kind]
		if !ok {
			msg = defaultMessage
		}
		msg.Message = ie.Message
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
