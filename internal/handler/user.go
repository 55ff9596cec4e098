package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"starledger/internal/model"
	"starledger/internal/service"
)

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

type userResponse struct {
	User      model.User             `json:"user"`
	Orders    []model.Order          `json:"orders"`
	History   []model.HistoryEntry   `json:"history"`
	Referrals []model.ReferralCredit `json:"referrals"`
}

func GetUserHandler(userSvc *service.UserService, orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDParam(r)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}

		user, err := userSvc.Get(r.Context(), userID)
		if err != nil {
			writeError(w, "get user", err)
			return
		}
		orders, err := orderSvc.ListByUser(r.Context(), userID)
		if err != nil {
			writeError(w, "get user", err)
			return
		}
		history, err := userSvc.History(r.Context(), userID)
		if err != nil {
			writeError(w, "get user", err)
			return
		}
		refs, err := userSvc.Referrals(r.Context(), userID)
		if err != nil {
			writeError(w, "get user", err)
			return
		}

		writeJSON(w, http.StatusOK, userResponse{User: user, Orders: orders, History: history, Referrals: refs.Credits})
	}
}
