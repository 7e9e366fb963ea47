package errors

import (
	stderrors "errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(ErrCodeResolution, "metadata lookup failed for %s", "requests")
	want := "RESOLUTION_FAILED: metadata lookup failed for requests"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeAcquisition, cause, "clone %s", "https://github.com/a/b")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause with errors.Is")
	}
	if !Is(err, ErrCodeAcquisition) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeParse) {
		t.Error("Is should not match a different code")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"structured", New(ErrCodeUnsupportedFormat, "rar"), ErrCodeUnsupportedFormat},
		{"wrapped deeper", Wrap(ErrCodeResolution, New(ErrCodeInternal, "x"), "y"), ErrCodeResolution},
		{"plain error", stderrors.New("plain"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeParse, "syntax error in setup.py")); got != "syntax error in setup.py" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("raw")); got != "raw" {
		t.Errorf("UserMessage = %q", got)
	}
}
