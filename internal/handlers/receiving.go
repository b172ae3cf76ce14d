package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/warefront/fieldsync/internal/models"
)

// shipmentLine is an inbound shipment line with its remaining quantity.
type shipmentLine struct {
	models.InboundShipment
	RemainingQuantity float64 `json:"remainingQuantity"`
}

// listShipments returns the open purchase order lines with receipts already
// entered on this device subtracted.
func (r *Router) listShipments(w http.ResponseWriter, req *http.Request) {
	lines := r.store.InboundShipments()
	out := make([]shipmentLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, shipmentLine{
			InboundShipment:   line,
			RemainingQuantity: r.recon.RemainingShipmentQuantity(line),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type receiptPayload struct {
	ItemNumber string  `json:"itemNumber"`
	LineNum    int     `json:"lineNum"`
	Quantity   float64 `json:"quantity"`
	LotNumber  string  `json:"lotNumber"`
	BatchID    string  `json:"batchId"`
}

// addReceipt records a received quantity against a purchase order line.
func (r *Router) addReceipt(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload receiptPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var line *models.InboundShipment
	for _, l := range r.store.InboundShipmentLines(number) {
		if l.ItemNumber == payload.ItemNumber && l.LineNum == payload.LineNum {
			found := l
			line = &found
			break
		}
	}
	if line == nil {
		respondError(w, http.StatusNotFound, "shipment line not found")
		return
	}

	receipt, err := r.workflow.AddReceipt(r.session, *line, payload.Quantity, payload.LotNumber, payload.BatchID)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

type holdPayload struct {
	Held bool `json:"held"`
}

// setReceiptHold flips the hold flag on a receipt work item.
func (r *Router) setReceiptHold(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var payload holdPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := r.workflow.SetReceiptHold(id, payload.Held); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

// transferLine is an inbound transfer line with its remaining quantity.
type transferLine struct {
	models.InboundTransfer
	RemainingQuantity float64 `json:"remainingQuantity"`
}

// listTransfers returns the open transfer lines with receipts subtracted.
func (r *Router) listTransfers(w http.ResponseWriter, req *http.Request) {
	lines := r.store.InboundTransfers()
	out := make([]transferLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, transferLine{
			InboundTransfer:   line,
			RemainingQuantity: r.recon.RemainingTransferQuantity(line),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type transferReceiptPayload struct {
	ItemNumber string  `json:"itemNumber"`
	Seq        int     `json:"seq"`
	Quantity   float64 `json:"quantity"`
	LotNumber  string  `json:"lotNumber"`
}

// addTransferReceipt records a received quantity against a transfer line.
func (r *Router) addTransferReceipt(w http.ResponseWriter, req *http.Request) {
	number := mux.Vars(req)["number"]

	var payload transferReceiptPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var line *models.InboundTransfer
	for _, l := range r.store.InboundTransferLines(number) {
		if l.ItemNumber == payload.ItemNumber && l.Seq == payload.Seq {
			found := l
			line = &found
			break
		}
	}
	if line == nil {
		respondError(w, http.StatusNotFound, "transfer line not found")
		return
	}

	item, err := r.workflow.AddTransferReceipt(r.session, *line, payload.Quantity, payload.LotNumber)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

type notePayload struct {
	NoteType     string   `json:"noteType"`
	NoteParentFk string   `json:"noteParentFk"`
	NoteText     string   `json:"noteText"`
	Images       []string `json:"images"`
}

// addNote attaches a note to a parent record.
func (r *Router) addNote(w http.ResponseWriter, req *http.Request) {
	var payload notePayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := r.workflow.AddNote(r.session, payload.NoteType, payload.NoteParentFk, payload.NoteText, payload.Images)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"result": "note added"})
}
