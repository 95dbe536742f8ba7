package handler

import (
	"errors"
	"net/http"

	"moodchat/internal/app/db"
	"moodchat/internal/pkg/auth/jwt"
	"moodchat/internal/pkg/errs"
	"moodchat/internal/pkg/logx"
	"moodchat/internal/pkg/resp"
)

// HandleGetCurrentUser returns the users row of the token holder.
func HandleGetCurrentUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.Users.GetUserByID(r.Context(), identity.UserID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				logx.Warn("token subject has no user row", "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
			resp.RespondError(w, r, errs.Wrap(err, errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, u)
	}
}
