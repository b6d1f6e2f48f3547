package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large maps correctly",
			err:         reject("file too large: exceeds 50 MiB"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "max bytes reader maps correctly",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "missing file maps correctly",
			err:         reject("no file provided"),
			wantCode:    "FILE004",
			wantMessage: "No file was uploaded",
		},
		{
			name:        "empty filename maps correctly",
			err:         reject("empty filename"),
			wantCode:    "FILE005",
			wantMessage: "The uploaded file has no name",
		},
		{
			name:        "invalid type maps correctly",
			err:         reject("invalid file type %q", "text/csv"),
			wantCode:    "FILE006",
			wantMessage: "Invalid file type, please upload an XML file",
		},
		{
			name:        "empty document maps before parse failure",
			err:         &ParseError{Err: errEmptyDocument},
			wantCode:    "XML001",
			wantMessage: "The file contains no XML",
		},
		{
			name:        "parse failure maps correctly",
			err:         &ParseError{Err: errors.New("XML syntax error on line 3: unexpected EOF")},
			wantCode:    "XML002",
			wantMessage: "Failed to parse the XML file",
		},
		{
			name:        "limiter timeout maps correctly",
			err:         ErrTooManyConversions,
			wantCode:    "UPL002",
			wantMessage: "Too many conversions in progress",
		},
		{
			name:        "cancelled maps correctly",
			err:         context.Canceled,
			wantCode:    "UPL004",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "deadline maps correctly",
			err:         fmt.Errorf("read upload: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("disk on fire"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_ParseDetail(t *testing.T) {
	cause := errors.New("XML syntax error on line 7: element <column> closed by </datasource>")
	got := MapError(&ParseError{Err: cause})
	if got.Detail != cause.Error() {
		t.Errorf("Detail = %q, want parser message %q", got.Detail, cause.Error())
	}

	if d := MapError(reject("empty filename")).Detail; d != "" {
		t.Errorf("Detail for rejection = %q, want empty", d)
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := GetErrorCode(ErrTooManyConversions); got != "UPL002" {
		t.Errorf("GetErrorCode() = %q, want UPL002", got)
	}
	if got := GetErrorCode(nil); got != "" {
		t.Errorf("GetErrorCode(nil) = %q, want empty", got)
	}
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"without detail", reject("no file provided"), "No file was uploaded (FILE004)"},
		{"with detail", &ParseError{Err: errors.New("unexpected EOF")}, "Failed to parse the XML file: unexpected EOF (XML002)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUserError(tt.err); got != tt.want {
				t.Errorf("FormatUserError() = %q, want %q", got, tt.want)
			}
		})
	}
}
