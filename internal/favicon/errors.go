// internal/favicon/errors.go
package favicon

import "errors"

var (
	// ErrMissingInput is returned when the lookup field is empty.
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidURL is returned when the input does not normalize into an
	// absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrExportFailure covers every way an export can fail: the image did not
	// load or decode, or the PNG encoding came out empty.
	ErrExportFailure = errors.New("export failed")
)

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrExportFailure):
		return "export_failed"
	default:
		return "internal"
	}
}

// Message returns the user-facing text shown for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "URL을 입력해주세요"
	case errors.Is(err, ErrInvalidURL):
		return "올바른 URL을 입력해주세요"
	default:
		return "다운로드 중 오류가 발생했습니다"
	}
}
