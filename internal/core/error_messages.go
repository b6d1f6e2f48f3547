package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// Users can quote the code to support staff for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Export a smaller workbook or raise UPLOAD_MAX_FILE_SIZE
//	          Patterns: "file too large", "request body too large"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a workbook XML file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty filename: The uploaded file has no name
//	          Action: Rename the file and upload it again
//	          Patterns: "empty filename"
//
//	FILE006 - Invalid type: The file is not declared as XML
//	          Action: Upload a .twb or .xml file (application/xml or text/xml)
//	          Patterns: "invalid file type"
//
// # XML Errors (XML001-XML099)
//
//	XML001 - Empty document: The file contains no XML
//	         Action: Check that the workbook was saved completely
//	         Patterns: "empty document"
//
//	XML002 - Parse failure: The file is not well-formed XML
//	         Action: Re-export the workbook and try again
//	         Patterns: "failed to parse xml"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many conversions in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent conversions"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try a smaller file or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. For parse failures the
// parser's own message is appended so the user can locate the problem.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Detail  string // Underlying cause shown to the user, if safe
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Export a smaller workbook or ask an administrator to raise the limit",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Export a smaller workbook or ask an administrator to raise the limit",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was uploaded",
			Action:  "Please select a workbook XML file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty filename",
		msg: UserMessage{
			Message: "The uploaded file has no name",
			Action:  "Rename the file and upload it again",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Invalid file type, please upload an XML file",
			Action:  "Upload a .twb or .xml file sent as application/xml or text/xml",
			Code:    "FILE006",
		},
	},

	// XML errors
	{
		pattern: "empty document",
		msg: UserMessage{
			Message: "The file contains no XML",
			Action:  "Check that the workbook was saved completely",
			Code:    "XML001",
		},
	},
	{
		pattern: "failed to parse xml",
		msg: UserMessage{
			Message: "Failed to parse the XML file",
			Action:  "Re-export the workbook and try again",
			Code:    "XML002",
		},
	},

	// Upload errors
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "Too many conversions in progress",
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

var defaultErrorMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-facing message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			msg := p.msg
			msg.Detail = detailFor(err)
			return msg
		}
	}

	return defaultErrorMessage
}

// detailFor exposes the parser message for parse failures only.
func detailFor(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return ""
}

// GetErrorCode returns just the code for err.
func GetErrorCode(err error) string {
	return MapError(err).Code
}

// FormatUserError renders the message, detail and code on one line.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	if msg.Detail != "" {
		return msg.Message + ": " + msg.Detail + " (" + msg.Code + ")"
	}
	return msg.Message + " (" + msg.Code + ")"
}
