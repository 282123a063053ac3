package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pocketrelay/client/lookup"
)

func (api *API) registerEndpoints() {
	api.handlers.HandleFunc("GET /api/status", api.handleStatus)
	api.handlers.HandleFunc("POST /api/connect", api.handleConnect)
	api.handlers.HandleFunc("POST /api/disconnect", api.handleDisconnect)
}

// statusResponse is the reply of the status endpoint.
type statusResponse struct {
	Version string       `json:"version"`
	Uptime  string       `json:"uptime"`
	Target  *lookup.Data `json:"target"`

	HostsEntry        string `json:"hostsEntry"`
	HostsEntryApplied bool   `json:"hostsEntryApplied"`

	RedirectorPort uint16 `json:"redirectorPort"`
	BlazeProxyPort uint16 `json:"blazeProxyPort"`
	HTTPProxyPort  uint16 `json:"httpProxyPort"`
	TelemetryPort  uint16 `json:"telemetryPort"`
	QOSPort        uint16 `json:"qosPort"`
}

func (api *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	conf := api.instance.Config()
	guard := api.instance.HostsGuard()

	status := statusResponse{
		Version: api.instance.Version(),
		Uptime:  conf.Uptime().Round(time.Second).String(),

		HostsEntry:        guard.Entry().String(),
		HostsEntryApplied: guard.Applied(),

		RedirectorPort: conf.Servers.RedirectorPort,
		BlazeProxyPort: conf.Servers.BlazeProxyPort,
		HTTPProxyPort:  conf.Servers.HTTPProxyPort,
		TelemetryPort:  conf.Servers.TelemetryPort,
		QOSPort:        conf.Servers.QOSPort,
	}
	if data, err := api.instance.Lookup().Get(); err == nil {
		status.Target = data
	}

	writeJSON(w, http.StatusOK, status)
}

// connectRequest is the body of the connect endpoint.
type connectRequest struct {
	ConnectionURL string `json:"connectionUrl"`
}

func (api *API) handleConnect(w http.ResponseWriter, r *http.Request) {
	var request connectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	data, err := api.instance.Lookup().Connect(r.Context(), request.ConnectionURL, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (api *API) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	api.instance.Lookup().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
