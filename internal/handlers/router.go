package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/warefront/fieldsync/internal/reconcile"
	"github.com/warefront/fieldsync/internal/store"
	"github.com/warefront/fieldsync/internal/sync"
	"github.com/warefront/fieldsync/internal/websocket"
	"github.com/warefront/fieldsync/internal/workflow"
)

// Router wraps the mux router and the services the UI layer calls.
type Router struct {
	*mux.Router
	engine   *sync.Engine
	workflow *workflow.Service
	recon    *reconcile.Engine
	store    *store.Store
	hub      *websocket.Hub
	session  workflow.Session
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(engine *sync.Engine, wf *workflow.Service, recon *reconcile.Engine,
	st *store.Store, hub *websocket.Hub, session workflow.Session) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		engine:   engine,
		workflow: wf,
		recon:    recon,
		store:    st,
		hub:      hub,
		session:  session,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Sync routes
	syncRoutes := r.PathPrefix("/api/sync").Subrouter()
	syncRoutes.HandleFunc("/status", r.syncStatus).Methods("GET")
	syncRoutes.HandleFunc("/pending", r.pendingCount).Methods("GET")
	syncRoutes.HandleFunc("/trigger", r.triggerSync).Methods("POST")
	syncRoutes.HandleFunc("/push", r.triggerPush).Methods("POST")
	syncRoutes.HandleFunc("/branches", r.syncBranches).Methods("POST")
	syncRoutes.HandleFunc("/pull/{branchId}", r.pullBranch).Methods("POST")
	syncRoutes.HandleFunc("/reset", r.resetReplica).Methods("POST")

	// Branch routes
	r.HandleFunc("/api/branches", r.listBranches).Methods("GET")

	// Sales order routes
	orders := r.PathPrefix("/api/orders").Subrouter()
	orders.HandleFunc("/pick", r.pickList).Methods("GET")
	orders.HandleFunc("/delivery", r.deliveryList).Methods("GET")
	orders.HandleFunc("/{number}/items", r.adjustedItems).Methods("GET")
	orders.HandleFunc("/{number}/items/{item}/lots", r.adjustedLots).Methods("GET")
	orders.HandleFunc("/{number}/workitems", r.workItems).Methods("GET")
	orders.HandleFunc("/{number}/workitems", r.deleteWorkItems).Methods("DELETE")
	orders.HandleFunc("/{number}/pick", r.pickLine).Methods("POST")
	orders.HandleFunc("/{number}/confirm", r.confirmPick).Methods("POST")
	orders.HandleFunc("/{number}/batch-confirm", r.batchConfirm).Methods("POST")
	orders.HandleFunc("/{number}/delivery", r.completeDelivery).Methods("POST")
	orders.HandleFunc("/{number}/customer-mobile", r.updateCustomerMobile).Methods("PUT")

	// Receiving routes
	r.HandleFunc("/api/shipments", r.listShipments).Methods("GET")
	r.HandleFunc("/api/shipments/{number}/receipts", r.addReceipt).Methods("POST")
	r.HandleFunc("/api/receipts/{id}/hold", r.setReceiptHold).Methods("PUT")
	r.HandleFunc("/api/transfers", r.listTransfers).Methods("GET")
	r.HandleFunc("/api/transfers/{number}/receipts", r.addTransferReceipt).Methods("POST")

	// Notes
	r.HandleFunc("/api/notes", r.addNote).Methods("POST")

	// Websocket status stream
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(hub, w, req)
	})

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
