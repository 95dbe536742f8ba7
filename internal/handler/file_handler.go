package handler

import (
	"errors"
	"net/http"
	"path/filepath"

	"moodchat/internal/app/chat"
	"moodchat/internal/app/message"
	"moodchat/internal/app/storage"
	"moodchat/internal/pkg/auth/jwt"
	"moodchat/internal/pkg/errs"
	"moodchat/internal/pkg/logx"
	"moodchat/internal/pkg/randx"
	"moodchat/internal/pkg/req"
	"moodchat/internal/pkg/resp"
)

// chatFileScope prefixes every object key issued for chat attachments.
const chatFileScope = "chat"

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory.
const multipartMemory = 1 << 20

type PresignUploadInput struct {
	FileName    string       `json:"fileName" validate:"required,max=255"`
	MimeType    string       `json:"mimeType" validate:"required,max=127"`
	FileSize    int64        `json:"fileSize" validate:"required,gt=0"`
	MessageType message.Type `json:"messageType" validate:"required,oneof=voice file"`
}

// HandlePresignUpload issues a PUT URL for a voice or file payload. The
// returned fileKey becomes the content of the chat message.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageDisabled))
			return
		}
		identity := jwt.GetPayloadFromContext(r)

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := chat.ValidateAttachment(input.MessageType, input.FileName, input.MimeType, input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := randx.ObjectKey(chatFileScope+"/"+identity.UserID, filepath.Ext(input.FileName))

		url, err := deps.Storage.PresignUpload(r.Context(), fileKey, input.MimeType, input.FileSize, chat.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignDownload redirects to a short-lived GET URL for the key in
// the k query parameter. Chat attachments are readable by any signed-in user.
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageDisabled))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" || !randx.HasScope(fileKey, chatFileScope) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.Storage.Stat(r.Context(), fileKey); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrFileNotFound))
				return
			}
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrFileStorageFailed))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), fileKey, chat.PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// HandleUploadFile accepts a multipart upload (fields "messageType" and
// "file") and streams it to storage for clients that cannot PUT to a
// presigned URL.
func HandleUploadFile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageDisabled))
			return
		}
		identity := jwt.GetPayloadFromContext(r)

		r.Body = http.MaxBytesReader(w, r.Body, chat.MaxAttachmentSize+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRequestEntityTooLarge))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		kind := message.Type(r.FormValue("messageType"))
		mimeType := header.Header.Get("Content-Type")
		if customErr := chat.ValidateAttachment(kind, header.Filename, mimeType, header.Size); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := randx.ObjectKey(chatFileScope+"/"+identity.UserID, filepath.Ext(header.Filename))
		if err := deps.Storage.Upload(r.Context(), fileKey, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrFileStorageFailed))
			return
		}

		logx.Info("attachment stored", "user_id", identity.UserID, "key", fileKey, "size", header.Size)
		resp.RespondSuccess(w, r, map[string]any{
			"fileKey":  fileKey,
			"fileName": header.Filename,
		})
	}
}
