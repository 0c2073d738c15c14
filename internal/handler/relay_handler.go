/*
Package handler provides the HTTP handler for direct relay lookups.
*/
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"torwatch/internal/app/directory"
	"torwatch/internal/app/node"
	"torwatch/internal/pkg/errs"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/pkg/resp"
)

// HandleGetRelay looks up a single fingerprint against the directory service,
// independent of any user's watch set.
func HandleGetRelay(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := node.ParseFingerprint(chi.URLParam(r, "fingerprint"))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFingerprintInvalid))
			return
		}

		info, err := deps.Directory.Lookup(r.Context(), fp)
		if errors.Is(err, directory.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRelayNotFound, string(fp)))
			return
		}
		if err != nil {
			logx.Warn("Directory lookup failed", "fingerprint", string(fp), "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrDirectoryUnavailable))
			return
		}

		outcome := "offline"
		if info.Running {
			outcome = "running"
		}

		resp.RespondSuccess(w, r, nodeStatus{
			Fingerprint: string(fp),
			Outcome:     outcome,
			Nickname:    info.Nickname,
			Country:     info.CountryName,
			Bandwidth:   directory.FormatBandwidth(info.BandwidthRate) + "/s",
			Uptime:      directory.FormatUptime(info.LastRestarted, time.Now()),
		})
	}
}
