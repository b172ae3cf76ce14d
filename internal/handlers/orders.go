package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/warefront/fieldsync/internal/models"
	"github.com/warefront/fieldsync/internal/workflow"
)

// pickList returns the orders still awaiting a pick.
func (r *Router) pickList(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.workflow.PickList())
}

// deliveryList returns the orders with picked items awaiting delivery.
func (r *Router) deliveryList(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.workflow.DeliveryList())
}

// adjustedItems returns the order's lines with picked quantities subtracted.
func (r *Router) adjustedItems(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":           r.recon.AdjustedItems(number),
		"isFulfilled":     r.recon.IsFulfilled(number),
		"canBatchConfirm": r.recon.CanBatchConfirm(number),
	})
}

// adjustedLots returns the lots for one item with picked quantities
// subtracted.
func (r *Router) adjustedLots(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	respondJSON(w, http.StatusOK, r.recon.AdjustedLots(vars["number"], vars["item"]))
}

// workItems returns the order's work items.
func (r *Router) workItems(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]
	respondJSON(w, http.StatusOK, r.workflow.WorkItems(number))
}

// deleteWorkItems resets an order to its ordered state.
func (r *Router) deleteWorkItems(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]
	if err := r.workflow.DeleteWorkItems(number); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	r.hub.Broadcast("ORDER_RESET", map[string]string{"salesOrderNumber": number})
	respondJSON(w, http.StatusOK, map[string]string{"result": "work items removed"})
}

type pickPayload struct {
	ItemNumber       string  `json:"itemNumber"`
	OriginalSequence int     `json:"originalSequence"`
	UpdatedQuantity  float64 `json:"updatedQuantity"`
	TakenQuantity    float64 `json:"takenQuantity"`
	LotNumber        string  `json:"lotNumber"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// pickLine records one picked line. The order stays on the pick list until
// the order-level confirm.
func (r *Router) pickLine(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload pickPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order := r.store.SalesOrder(number)
	if order == nil {
		respondError(w, http.StatusNotFound, "sales order not found")
		return
	}

	var item *models.SalesOrderItem
	for _, it := range r.recon.AdjustedItems(number) {
		if it.ItemNumber == payload.ItemNumber && it.Seq == payload.OriginalSequence {
			found := it
			item = &found
			break
		}
	}
	if item == nil {
		respondError(w, http.StatusNotFound, "sales order item not found")
		return
	}

	var lot *models.Lot
	if payload.LotNumber != "" {
		for _, l := range r.recon.AdjustedLots(number, payload.ItemNumber) {
			if l.LotNumber == payload.LotNumber {
				found := l
				lot = &found
				break
			}
		}
		if lot == nil {
			respondError(w, http.StatusNotFound, "lot not found")
			return
		}
	}

	workItem, err := r.workflow.PickLine(r.session, workflow.PickRequest{
		Order:           *order,
		Item:            *item,
		UpdatedQuantity: payload.UpdatedQuantity,
		TakenQuantity:   payload.TakenQuantity,
		Lot:             lot,
		Latitude:        payload.Latitude,
		Longitude:       payload.Longitude,
	})
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	r.hub.Broadcast("LINE_PICKED", workItem)
	respondJSON(w, http.StatusCreated, workItem)
}

type confirmPickPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// confirmPick confirms the whole order's pick, stamping every work item.
func (r *Router) confirmPick(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload confirmPickPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	confirmed, err := r.workflow.ConfirmPick(r.session, number, payload.Latitude, payload.Longitude)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	r.hub.Broadcast("PICK_CONFIRMED", map[string]interface{}{
		"salesOrderNumber": number,
		"workItems":        confirmed,
	})
	respondJSON(w, http.StatusOK, confirmed)
}

type batchConfirmPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// batchConfirm picks every remaining line that needs no lot decision at once.
func (r *Router) batchConfirm(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload batchConfirmPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := r.workflow.BatchConfirm(r.session, number, payload.Latitude, payload.Longitude)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	r.hub.Broadcast("BATCH_CONFIRMED", map[string]interface{}{
		"salesOrderNumber": number,
		"workItems":        created,
	})
	respondJSON(w, http.StatusCreated, created)
}

type deliveryPayload struct {
	EncodedSignatureImage string             `json:"encodedSignatureImage"`
	CustomerAvailable     bool               `json:"customerAvailable"`
	DeliveredQuantities   map[string]float64 `json:"deliveredQuantities"`
	Latitude              float64            `json:"latitude"`
	Longitude             float64            `json:"longitude"`
}

// completeDelivery moves an order's picked items to delivered.
func (r *Router) completeDelivery(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload deliveryPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := r.workflow.CompleteDelivery(r.session, workflow.DeliveryRequest{
		OrderNumber:           number,
		EncodedSignatureImage: payload.EncodedSignatureImage,
		CustomerAvailable:     payload.CustomerAvailable,
		DeliveredQuantities:   payload.DeliveredQuantities,
		Latitude:              payload.Latitude,
		Longitude:             payload.Longitude,
	})
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	r.hub.Broadcast("DELIVERY_COMPLETED", map[string]string{"salesOrderNumber": number})
	respondJSON(w, http.StatusOK, map[string]string{"result": "delivered"})
}

type customerMobilePayload struct {
	MobileNumber string `json:"mobileNumber"`
}

// updateCustomerMobile queues a customer contact change.
func (r *Router) updateCustomerMobile(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload customerMobilePayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := r.workflow.UpdateCustomerMobile(r.session, number, payload.MobileNumber); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "update queued"})
}
