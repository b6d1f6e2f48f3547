package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadDocument_StripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBF<workbook/>"
	data, counter, err := ReadDocument(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if string(data) != "<workbook/>" {
		t.Errorf("data = %q, want BOM stripped", data)
	}
	if counter.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(input))
	}
}

func TestReadDocument_TranscodesUTF16(t *testing.T) {
	// "<a/>" in UTF-16LE with BOM.
	input := []byte{0xFF, 0xFE, '<', 0, 'a', 0, '/', 0, '>', 0}
	data, _, err := ReadDocument(bytes.NewReader(input), 0)
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if string(data) != "<a/>" {
		t.Errorf("data = %q, want %q", data, "<a/>")
	}
}

func TestReadDocument_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		limit   int64
		wantErr bool
	}{
		{"under limit", 10, 20, false},
		{"exactly at limit", 20, 20, false},
		{"over limit", 21, 20, true},
		{"no limit", 1000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := strings.Repeat("x", tt.size)
			data, _, err := ReadDocument(strings.NewReader(input), tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrInputRejected) {
					t.Fatalf("error = %v, want ErrInputRejected", err)
				}
				if !errors.Is(err, ErrFileTooLarge) {
					t.Errorf("error = %v, want ErrFileTooLarge", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(data) != tt.size {
				t.Errorf("len(data) = %d, want %d", len(data), tt.size)
			}
		})
	}
}

func TestReadDocument_PassesThroughWithoutBOM(t *testing.T) {
	input := "<?xml version='1.0' encoding='ISO-8859-1'?><a b='caf\xe9'/>"
	data, _, err := ReadDocument(strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if string(data) != input {
		t.Errorf("data = %q, want input unchanged", data)
	}
}

func TestCountingReader(t *testing.T) {
	cr := NewCountingReader(strings.NewReader("hello world"))
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatal(err)
	}
	if cr.BytesRead != 11 {
		t.Errorf("BytesRead = %d, want 11", cr.BytesRead)
	}
}
