package controllers

import (
	"net/http"

	"github.com/amertacoffee/amerta-backend/api/responses"
	"github.com/amertacoffee/amerta-backend/internal/checkout"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/logger"
)

// CheckoutExecute turns the caller's cart into a placed order.
func CheckoutExecute(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithUserID(ctx, userID.String())
		}

		result, err := svc.Execute(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, result.ID.String())
			logg.Info(ctx, "order placed")
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
