package controllers

import (
	"net/http"

	"github.com/nexusquest/backend/api/responses"
	"github.com/nexusquest/backend/api/validators"
	"github.com/nexusquest/backend/internal/quest"
	"github.com/nexusquest/backend/internal/roster"
	"github.com/nexusquest/backend/pkg/logger"
	"github.com/nexusquest/backend/pkg/wei"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

type sellHeroPayload struct {
	HeroID     uint64 `json:"hero_id" validate:"required,min=1"`
	PriceEther string `json:"price_ether" validate:"required"`
}

type listingResponse struct {
	HeroID     uint64            `json:"hero_id"`
	Seller     string            `json:"seller"`
	PriceWei   string            `json:"price_wei"`
	PriceEther string            `json:"price_ether"`
	Mine       bool              `json:"mine"`
	Name       string            `json:"name"`
	Experience uint64            `json:"experience"`
	Story      string            `json:"story"`
	ImageURI   string            `json:"image_uri"`
	Status     roster.HeroStatus `json:"status"`
}

func toListingResponses(svc quest.Service, listings []roster.Listing) []listingResponse {
	account := svc.Account()
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		resp := listingResponse{
			HeroID:     l.HeroID,
			Seller:     l.Seller.Hex(),
			PriceEther: wei.FormatEther(l.PriceWei),
			Mine:       l.Seller == account,
			Name:       l.Name,
			Experience: l.Experience,
			Story:      l.Story,
			ImageURI:   l.ImageURI,
			Status:     l.Status,
		}
		if l.PriceWei != nil {
			resp.PriceWei = l.PriceWei.String()
		}
		out = append(out, resp)
	}
	return out
}

// ListingsList re-probes the market and returns the active listings with
// prices in both wei and ether.
func ListingsList(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		listings, err := svc.Listings(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"listings": toListingResponses(svc, listings)})
	}
}

// ListingCreate runs the approve-then-list sell flow for an owned hero.
func ListingCreate(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		var payload sellHeroPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listings, err := svc.Sell(ctx, payload.HeroID, payload.PriceEther)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"listings": toListingResponses(svc, listings)})
	}
}

// ListingPurchase buys a listed hero at its asking price and returns the
// refreshed roster.
func ListingPurchase(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		id, err := heroIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		heroes, err := svc.Buy(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"heroes": heroes})
	}
}
