package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"starledger/internal/model"
	"starledger/internal/mw"
	"starledger/internal/service"
)

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.OrderStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = model.StatusPending
		}

		orders, err := orderSvc.ListByStatus(r.Context(), status)
		if err != nil {
			writeError(w, "list orders", err)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type decisionResponse struct {
	Order model.Order            `json:"order"`
	Bonus *service.ReferralBonus `json:"bonus,omitempty"`
}

func DecideHandler(coord *service.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := mw.ActorID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req decisionRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		decision, err := service.ParseDecision(req.Decision)
		if err != nil {
			writeError(w, "decide order", err)
			return
		}

		res, err := coord.Decide(r.Context(), actorID, chi.URLParam(r, "orderID"), decision)
		if err != nil {
			writeError(w, "decide order", err)
			return
		}
		writeJSON(w, http.StatusOK, decisionResponse{Order: res.Order, Bonus: res.Bonus})
	}
}
