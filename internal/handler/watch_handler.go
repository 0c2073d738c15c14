/*
Package handler provides HTTP handler functions for inspecting the watch registry.
*/
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"torwatch/internal/app/directory"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/pkg/errs"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/pkg/req"
	"torwatch/internal/pkg/resp"
)

// nodeStatus is one entry of the on-demand status response.
type nodeStatus struct {
	Fingerprint string `json:"fingerprint"`
	Outcome     string `json:"outcome"`
	Nickname    string `json:"nickname,omitempty"`
	Country     string `json:"country,omitempty"`
	Bandwidth   string `json:"bandwidth,omitempty"`
	Uptime      string `json:"uptime,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// userIDParam parses the {id} route parameter.
func userIDParam(r *http.Request) (node.UserID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return node.UserID(id), true
}

// HandleGetUserNodes returns a user's watched fingerprints.
func HandleGetUserNodes(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		fingerprints, err := deps.Store.List(r.Context(), id)
		if errors.Is(err, registry.ErrUnknownUser) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to list nodes", "user_id", int64(id))
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		nodes := make([]string, len(fingerprints))
		for i, fp := range fingerprints {
			nodes[i] = string(fp)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userId": int64(id),
			"nodes":  nodes,
		})
	}
}

type addNodeInput struct {
	Fingerprint string `json:"fingerprint"`
}

// HandleAddUserNode adds a fingerprint to a user's watch set on their behalf.
func HandleAddUserNode(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input addNodeInput
		if bindErr := req.BindJSON(r, &input); bindErr != nil {
			resp.RespondError(w, r, bindErr)
			return
		}

		fp, err := node.ParseFingerprint(input.Fingerprint)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFingerprintInvalid))
			return
		}

		err = deps.Store.Add(r.Context(), id, fp)
		if errors.Is(err, registry.ErrAlreadyPresent) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNodeAlreadyWatched))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to add node", "user_id", int64(id))
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userId":      int64(id),
			"fingerprint": string(fp),
		})
	}
}

// HandleRemoveUserNode removes a fingerprint from a user's watch set.
func HandleRemoveUserNode(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		fp, err := node.ParseFingerprint(chi.URLParam(r, "fingerprint"))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFingerprintInvalid))
			return
		}

		removed, err := deps.Store.Remove(r.Context(), id, fp)
		if err != nil {
			logx.Error(err, "Failed to remove node", "user_id", int64(id))
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}
		if !removed {
			resp.RespondError(w, r, errs.NewError(errs.ErrNodeNotWatched))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userId":      int64(id),
			"fingerprint": string(fp),
		})
	}
}

// HandleGetUserStatus polls the directory for each of the user's nodes and
// returns the results. Lookup failures are reported per node.
func HandleGetUserStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		fingerprints, err := deps.Store.List(r.Context(), id)
		if errors.Is(err, registry.ErrUnknownUser) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		if err != nil {
			logx.Error(err, "Failed to list nodes", "user_id", int64(id))
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		now := time.Now()
		statuses := make([]nodeStatus, 0, len(fingerprints))
		for _, fp := range fingerprints {
			statuses = append(statuses, lookupStatus(r, deps, fp, now))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"userId": int64(id),
			"status": statuses,
		})
	}
}

func lookupStatus(r *http.Request, deps *AppDeps, fp node.Fingerprint, now time.Time) nodeStatus {
	info, err := deps.Directory.Lookup(r.Context(), fp)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return nodeStatus{Fingerprint: string(fp), Outcome: "not_found"}
	case err != nil:
		logx.Warn("Directory lookup failed", "fingerprint", string(fp), "error", err.Error())
		return nodeStatus{Fingerprint: string(fp), Outcome: "lookup_failed", Detail: err.Error()}
	}

	outcome := "offline"
	if info.Running {
		outcome = "running"
	}

	return nodeStatus{
		Fingerprint: string(fp),
		Outcome:     outcome,
		Nickname:    info.Nickname,
		Country:     info.CountryName,
		Bandwidth:   directory.FormatBandwidth(info.BandwidthRate) + "/s",
		Uptime:      directory.FormatUptime(info.LastRestarted, now),
	}
}
