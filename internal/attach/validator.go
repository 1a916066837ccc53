// Package attach validates candidate attachments before any network
// transfer is attempted.
package attach

import "strings"

// Verdict is the result of validating a candidate file.
type Verdict int

const (
	// OK means the file may be uploaded.
	OK Verdict = iota

	// FormatUnsupported means the mime type and extension do not both
	// match an allowed entry of the same kind.
	FormatUnsupported

	// ForbiddenType means the extension is on the executable/archive
	// denylist. Checked before anything else, regardless of mime type.
	ForbiddenType

	// TypeUnknown means the mime type is missing. Filenames alone are
	// never trusted.
	TypeUnknown

	// FileTooLarge means the file exceeds the size cap for its kind.
	FileTooLarge
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case FormatUnsupported:
		return "format_unsupported"
	case ForbiddenType:
		return "forbidden_type"
	case TypeUnknown:
		return "type_unknown"
	case FileTooLarge:
		return "file_too_large"
	default:
		return "unknown"
	}
}

// Size caps in bytes.
const (
	MaxImageSize    = 10 << 20 // 10 MiB
	MaxDocumentSize = 20 << 20 // 20 MiB
	MaxZipSize      = 50 << 20 // 50 MiB
)

// deniedExts are rejected outright, whatever the mime type claims.
var deniedExts = map[string]struct{}{
	"rar": {}, "exe": {}, "apk": {}, "dmg": {}, "bat": {}, "sh": {},
}

var imageMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/heic": {},
	"image/heif": {},
}

var imageExts = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "heic": {}, "heif": {},
}

var documentMimes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain":               {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/zip": {},
}

var documentExts = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "txt": {}, "xls": {}, "xlsx": {}, "zip": {},
}

// Validate checks a candidate file's extension, mime type, and size
// against the upload policy. It is a pure function with no I/O; callers
// must run it before building a transfer.
//
// Check order matters: the extension denylist wins over everything, a
// missing mime type is rejected next, and only then are the per-kind
// allowlists and size caps applied.
func Validate(ext, mimeType string, sizeBytes int64) Verdict {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	mimeType = normalizeMime(mimeType)

	if _, denied := deniedExts[ext]; denied {
		return ForbiddenType
	}

	if mimeType == "" {
		return TypeUnknown
	}

	_, mimeIsImage := imageMimes[mimeType]
	_, extIsImage := imageExts[ext]

	if mimeIsImage && extIsImage {
		if sizeBytes > MaxImageSize {
			return FileTooLarge
		}

		return OK
	}

	_, mimeIsDoc := documentMimes[mimeType]
	_, extIsDoc := documentExts[ext]

	if mimeIsDoc && extIsDoc {
		limit := int64(MaxDocumentSize)
		if ext == "zip" {
			limit = MaxZipSize
		}

		if sizeBytes > limit {
			return FileTooLarge
		}

		return OK
	}

	return FormatUnsupported
}

// normalizeMime lowercases a mime type and strips any parameters
// ("text/plain; charset=utf-8" -> "text/plain").
func normalizeMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return mimeType
}
