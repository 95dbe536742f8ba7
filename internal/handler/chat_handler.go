package handler

import (
	"net/http"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/errs"
	"moodchat/internal/pkg/req"
	"moodchat/internal/pkg/resp"
)

// HandleListMessages returns the history window, newest first. The limit
// query parameter defaults to HISTORY_DEFAULT_LIMIT and is capped at
// HISTORY_MAX_LIMIT.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := req.QueryInt(r, "limit", deps.Config.HistoryDefaultLimit, deps.Config.HistoryMaxLimit)

		msgs, err := deps.History.ListChatMessages(r.Context(), limit)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrHistoryUnavailable))
			return
		}

		if msgs == nil {
			msgs = []message.ChatMessage{}
		}
		resp.RespondSuccess(w, r, msgs)
	}
}
