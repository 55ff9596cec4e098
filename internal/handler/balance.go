package handler

import (
	"encoding/json"
	"net/http"

	"starledger/internal/mw"
	"starledger/internal/service"
)

type adjustRequest struct {
	Balance  int64  `json:"balance"`
	Referral int64  `json:"referral"`
	Note     string `json:"note"`
}

// AdjustHandler applies signed deltas to a user's balances.
func AdjustHandler(coord *service.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := mw.ActorID(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := userIDParam(r)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		var req adjustRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		user, err := coord.Adjust(r.Context(), actorID, userID, req.Balance, req.Referral, req.Note)
		if err != nil {
			writeError(w, "adjust user", err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
