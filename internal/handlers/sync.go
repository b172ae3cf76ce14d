package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/warefront/fieldsync/internal/sync"
)

// syncStatus returns the engine's current snapshot.
func (r *Router) syncStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.engine.Status())
}

// triggerSync starts a sync cycle. A cycle already running is not an error
// from the caller's point of view; they asked for a sync and one is
// happening.
func (r *Router) triggerSync(w http.ResponseWriter, req *http.Request) {
	err := r.engine.RunSyncCycle(req.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"result": "synced"})
	case errors.Is(err, sync.ErrSyncInProgress):
		respondJSON(w, http.StatusAccepted, map[string]string{"result": "already running"})
	case errors.Is(err, sync.ErrOffline):
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"result": "offline"})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// triggerPush drains the pending queue without a full cycle.
func (r *Router) triggerPush(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.Push(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "pushed"})
}

// syncBranches refreshes the branch list from the ERP.
func (r *Router) syncBranches(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.SyncBranches(req.Context()); err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "branches synced"})
}

// pullBranch refreshes the ERP snapshot for one branch.
func (r *Router) pullBranch(w http.ResponseWriter, req *http.Request) {
	branchID := mux.Vars(req)["branchId"]
	if err := r.engine.PullBranchData(req.Context(), branchID); err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "branch data pulled"})
}

func respondUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, sync.ErrOffline) {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondError(w, http.StatusBadGateway, err.Error())
}

// resetReplica wipes the local replica, pushing queued work out first when
// the gateway is reachable. The next cycle repopulates it.
func (r *Router) resetReplica(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.Reset(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "replica reset"})
}

// pendingCount reports how many local mutations await push.
func (r *Router) pendingCount(w http.ResponseWriter, req *http.Request) {
	n, err := r.engine.PendingCount()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"pending": n})
}

// listBranches returns the known branches.
func (r *Router) listBranches(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.store.Branches())
}
