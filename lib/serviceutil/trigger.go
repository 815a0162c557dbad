package serviceutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// TriggerStatus is the payload every scraping trigger endpoint
// responds with. The spanish field names are part of the contract with
// the pipeline that invokes these endpoints.
type TriggerStatus struct {
	Status  string `json:"status"`
	Message string `json:"mensaje"`
	Records int    `json:"registros,omitempty"`
}

func WriteTriggerOK(w http.ResponseWriter, message string, records int) {
	writeTrigger(w, http.StatusOK, TriggerStatus{
		Status:  "ok",
		Message: message,
		Records: records,
	})
}

func WriteTriggerError(w http.ResponseWriter, err error) {
	writeTrigger(w, http.StatusInternalServerError, TriggerStatus{
		Status:  "error",
		Message: err.Error(),
	})
}

func writeTrigger(w http.ResponseWriter, code int, status TriggerStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(status)
	if err != nil {
		slog.Error("failed to write trigger response", "err", err)
	}
}
