/*
Package handler provides HTTP handler functions for operator authentication.
*/
package handler

import (
	"crypto/subtle"
	"net/http"

	"torwatch/internal/pkg/auth/jwt"
	"torwatch/internal/pkg/errs"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/pkg/req"
	"torwatch/internal/pkg/resp"
)

type issueTokenInput struct {
	Secret string `json:"secret"`
}

// HandleIssueToken exchanges the configured operator secret for a signed JWT.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input issueTokenInput
		if bindErr := req.BindJSON(r, &input); bindErr != nil {
			resp.RespondError(w, r, bindErr)
			return
		}

		// An unset secret disables token issuance entirely rather than
		// accepting empty credentials.
		secret := deps.Config.OperatorSecret
		if secret == "" ||
			subtle.ConstantTimeCompare([]byte(input.Secret), []byte(secret)) != 1 {
			logx.Warn("Operator token request rejected: secret mismatch")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidOperatorSecret))
			return
		}

		token, err := jwt.GenerateToken(
			&jwt.Payload{Role: jwt.RoleOperator},
			deps.Config.JWTSecret,
			jwt.OperatorTokenExpiration,
		)
		if err != nil {
			logx.Error(err, "Failed to generate operator token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token":            token,
			"expiresInSeconds": int(jwt.OperatorTokenExpiration.Seconds()),
		})
	}
}
