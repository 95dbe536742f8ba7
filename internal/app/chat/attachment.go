package chat

import (
	"path/filepath"
	"strings"
	"time"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the upload limit for voice and file messages.
	MaxAttachmentSizeMB = 10

	// MaxAttachmentSize is MaxAttachmentSizeMB in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an upload or download URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// allowedMIME lists accepted upload types per message type.
var allowedMIME = map[message.Type]map[string]struct{}{
	message.TypeVoice: {
		"audio/webm": {},
		"audio/ogg":  {},
		"audio/mpeg": {},
		"audio/mp4":  {},
		"audio/wav":  {},
	},
	message.TypeFile: {
		"application/pdf": {},
		"text/plain":      {},
		"text/csv":        {},
		"image/jpeg":      {},
		"image/png":       {},
		"image/webp":      {},
		"image/gif":       {},
	},
}

// extToMIME maps accepted file extensions to the MIME type they must carry.
var extToMIME = map[string]string{
	".weba": "audio/webm",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateAttachment checks an upload request for a voice or file message.
func ValidateAttachment(kind message.Type, fileName, mimeType string, size int64) *errs.CustomError {
	if kind != message.TypeVoice && kind != message.TypeFile {
		return errs.NewError(errs.ErrMessageTypeInvalid)
	}

	if size <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if size > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAttachmentSizeMB)
	}

	mimeType = baseMIME(mimeType)
	if _, ok := allowedMIME[kind][mimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	if expected, ok := extToMIME[ext]; !ok || expected != mimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// ContentTypeFor returns the MIME type an upload named fileName must carry.
func ContentTypeFor(fileName string) (string, bool) {
	t, ok := extToMIME[strings.ToLower(filepath.Ext(fileName))]
	return t, ok
}

// baseMIME strips parameters such as "; codecs=opus".
func baseMIME(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
