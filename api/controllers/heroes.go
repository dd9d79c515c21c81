package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nexusquest/backend/api/responses"
	"github.com/nexusquest/backend/api/validators"
	"github.com/nexusquest/backend/internal/quest"
	"github.com/nexusquest/backend/pkg/logger"

	pkgerrors "github.com/nexusquest/backend/pkg/errors"
)

type createHeroPayload struct {
	Name string `json:"name" validate:"required,min=1,max=32"`
}

type actPayload struct {
	Action string `json:"action" validate:"required,min=1,max=280"`
}

func heroIDParam(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "heroId"))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "hero id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "hero id must be a positive integer")
	}
	return id, nil
}

// HeroesList re-reads the owned roster from the ledger and returns it.
func HeroesList(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		heroes, err := svc.Roster(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"heroes": heroes})
	}
}

// HeroesCreate mints a new hero and returns the refreshed roster.
func HeroesCreate(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		var payload createHeroPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		heroes, err := svc.CreateHero(ctx, payload.Name)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"heroes": heroes})
	}
}

// HeroGet returns the cached snapshot for one hero.
func HeroGet(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
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

		hero, err := svc.Hero(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, hero)
	}
}

// HeroAct submits an adventure action for the hero. The resolved outcome
// arrives asynchronously through the live watcher.
func HeroAct(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload actPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		txHash, err := svc.Act(ctx, id, payload.Action)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"tx_hash": txHash})
	}
}

// HeroChronicle rebuilds the hero's transcript from chain history,
// newest entry first.
func HeroChronicle(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
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

		entries, err := svc.Chronicle(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}

// FocusSelect marks a hero as the one being played.
func FocusSelect(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
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

		hero, err := svc.Focus(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, hero)
	}
}

// FocusGet returns the focused hero, or null when nothing is focused.
func FocusGet(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		hero, err := svc.Focused(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"hero": hero})
	}
}

// FocusClear returns to the roster view.
func FocusClear(svc quest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quest service unavailable"))
			return
		}

		if err := svc.ClearFocus(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}
