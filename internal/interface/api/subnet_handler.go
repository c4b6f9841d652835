package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zinrai/oc-neutron-go/internal/domain"
)

type subnetEnvelope struct {
	Subnet *domain.Subnet `json:"subnet"`
}

type SubnetHandler struct {
	subnets domain.SubnetAware
	logger  *zap.Logger
}

func NewSubnetHandler(subnets domain.SubnetAware, logger *zap.Logger) *SubnetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubnetHandler{subnets: subnets, logger: logger}
}

// Router wires the Neutron subnet endpoints plus health and metrics.
func (h *SubnetHandler) Router(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v2.0/subnets", instrument("create", h.createSubnet)).Methods(http.MethodPost)
	r.HandleFunc("/v2.0/subnets/{id}", instrument("update", h.updateSubnet)).Methods(http.MethodPut)
	r.HandleFunc("/v2.0/subnets/{id}", instrument("delete", h.deleteSubnet)).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (h *SubnetHandler) createSubnet(w http.ResponseWriter, r *http.Request) {
	var request subnetEnvelope
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := h.subnets.CanCreateSubnet(r.Context(), request.Subnet)
	if status != http.StatusOK {
		h.reject(w, "create", status)
		return
	}
	h.subnets.SubnetCreated(r.Context(), request.Subnet)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(request)
}

func (h *SubnetHandler) updateSubnet(w http.ResponseWriter, r *http.Request) {
	var request subnetEnvelope
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	original := &domain.Subnet{SubnetUUID: mux.Vars(r)["id"]}

	status := h.subnets.CanUpdateSubnet(r.Context(), request.Subnet, original)
	if !success(status) {
		h.reject(w, "update", status)
		return
	}
	h.subnets.SubnetUpdated(r.Context(), request.Subnet)
	w.WriteHeader(status)
}

func (h *SubnetHandler) deleteSubnet(w http.ResponseWriter, r *http.Request) {
	subnet := &domain.Subnet{
		SubnetUUID:  mux.Vars(r)["id"],
		NetworkUUID: r.URL.Query().Get("network_id"),
	}

	status := h.subnets.CanDeleteSubnet(r.Context(), subnet)
	if !success(status) {
		h.reject(w, "delete", status)
		return
	}
	h.subnets.SubnetDeleted(r.Context(), subnet)
	w.WriteHeader(status)
}

func (h *SubnetHandler) reject(w http.ResponseWriter, operation string, status int) {
	h.logger.Info("subnet request rejected",
		zap.String("operation", operation),
		zap.Int("status", status),
	)
	http.Error(w, http.StatusText(status), status)
}

func success(status int) bool {
	return status >= 200 && status <= 299
}
