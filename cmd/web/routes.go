package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"

	"github.com/ageleague/tourney-hub/internal/httputil"
	"github.com/ageleague/tourney-hub/internal/middleware"
	"github.com/ageleague/tourney-hub/internal/realtime"
	"github.com/ageleague/tourney-hub/internal/service"
	"github.com/ageleague/tourney-hub/internal/store"
	"github.com/ageleague/tourney-hub/internal/tourney"
)

// respondServiceError maps domain errors onto HTTP statuses. Every
// precondition failure carries a captain-readable message.
func respondServiceError(w http.ResponseWriter, err error) {
	var validation *tourney.ValidationError
	switch {
	case errors.As(err, &validation):
		httputil.BadRequest(w, validation.Error(), nil)
	case errors.Is(err, tourney.ErrNotAdmin),
		errors.Is(err, tourney.ErrNotCaptain),
		errors.Is(err, tourney.ErrNotYourTeam),
		errors.Is(err, tourney.ErrOwnProposal):
		httputil.Forbidden(w, err.Error())
	case errors.Is(err, tourney.ErrNotYourTurn),
		errors.Is(err, tourney.ErrPlayerUnavailable),
		errors.Is(err, tourney.ErrSessionNotActive),
		errors.Is(err, tourney.ErrInsufficientTeams),
		errors.Is(err, tourney.ErrBracketExists),
		errors.Is(err, tourney.ErrDuplicateProposal),
		errors.Is(err, tourney.ErrProposalResolved),
		errors.Is(err, tourney.ErrInvalidTransition),
		errors.Is(err, tourney.ErrRegistrationClosed),
		errors.Is(err, tourney.ErrCaptainsNotReady),
		errors.Is(err, tourney.ErrAlreadyRegistered):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		httputil.NotFound(w, "not found", err)
	default:
		httputil.InternalServerError(w, "request failed", err)
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func newRouter(database *sqlx.DB, sessionManager *scs.SessionManager, hub *realtime.Hub, presence *realtime.Presence) http.Handler {
	tournamentStore := store.NewTournamentStore(database)
	draftStore := store.NewDraftStore(database)
	matchStore := store.NewMatchStore(database)
	userStore := store.NewUserStore(database)

	tournamentService := service.NewTournamentService(database, tournamentStore, draftStore, hub)
	draftService := service.NewDraftService(database, draftStore, tournamentStore, hub, presence)
	bracketService := service.NewBracketService(database, matchStore, tournamentStore, hub)
	scheduleService := service.NewScheduleService(database, matchStore, tournamentStore, hub)
	userService := service.NewUserService(database, userStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)

	// Public reads.
	r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		tournaments, err := tournamentStore.ListPublicTournaments(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to list tournaments", err)
			return
		}
		httputil.JSON(w, http.StatusOK, tournaments)
	})

	r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		tournament, err := tournamentStore.GetTournament(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "Tournament not found", err)
				return
			}
			httputil.InternalServerError(w, "Failed to get tournament", err)
			return
		}
		teams, err := tournamentStore.GetTeams(r.Context(), id)
		if err != nil {
			httputil.InternalServerError(w, "Failed to get teams", err)
			return
		}
		matches, err := matchStore.ListMatches(r.Context(), id)
		if err != nil {
			httputil.InternalServerError(w, "Failed to get matches", err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]any{
			"tournament": tournament,
			"teams":      teams,
			"matches":    matches,
		})
	})

	r.Get("/tournaments/{id}/standings", func(w http.ResponseWriter, r *http.Request) {
		standings, err := bracketService.Standings(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httputil.InternalServerError(w, "Failed to compute standings", err)
			return
		}
		httputil.JSON(w, http.StatusOK, standings)
	})

	r.Get("/maps", func(w http.ResponseWriter, r *http.Request) {
		maps, err := tournamentStore.ListActiveMaps(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to list maps", err)
			return
		}
		httputil.JSON(w, http.StatusOK, maps)
	})

	// Change feed for one tournament, as server-sent events.
	r.Get("/tournaments/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		tournamentID, err := parseIDParam(r, "id")
		if err != nil {
			httputil.BadRequest(w, "Invalid tournament ID", err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			httputil.InternalServerError(w, "Streaming unsupported", nil)
			return
		}

		events, cancel := hub.Subscribe(tournamentID)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event := <-events:
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	})

	// Auth.
	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))
		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := userService.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}
		sessionManager.Put(r.Context(), "userID", user.ID.String())
		httputil.JSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	// Authenticated operations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager, userStore))

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			var body struct {
				Name        string      `json:"name"`
				Description string      `json:"description"`
				MapIDs      []uuid.UUID `json:"map_ids"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			tournament, err := tournamentService.Create(r.Context(), userID, body.Name, body.Description, body.MapIDs)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, tournament)
		})

		r.Post("/tournaments/{id}/advance", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			var body struct {
				Status tourney.TournamentStatus `json:"status"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			tournament, err := tournamentService.AdvanceStatus(r.Context(), tournamentID, userID, body.Status)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, tournament)
		})

		r.Post("/tournaments/{id}/register", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			var reg tourney.Registration
			if err := decodeBody(r, &reg); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if user := middleware.GetAuthenticatedUser(r.Context()); user != nil {
				reg.DiscordUsername = user.DisplayName()
				reg.DiscordAvatarURL = user.AvatarURL
			}
			created, err := tournamentService.Register(r.Context(), tournamentID, userID, &reg)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, created)
		})

		r.Delete("/tournaments/{id}/register", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			if err := tournamentService.Withdraw(r.Context(), tournamentID, userID, userID); err != nil {
				respondServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/tournaments/{id}/registrations", func(w http.ResponseWriter, r *http.Request) {
			regs, err := tournamentStore.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				httputil.InternalServerError(w, "Failed to list registrations", err)
				return
			}
			httputil.JSON(w, http.StatusOK, regs)
		})

		r.Post("/tournaments/{id}/categories", func(w http.ResponseWriter, r *http.Request) {
			adminID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			var body struct {
				UserID   uuid.UUID    `json:"user_id"`
				Category tourney.Tier `json:"category"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if err := tournamentService.AssignCategory(r.Context(), tournamentID, adminID, body.UserID, body.Category); err != nil {
				respondServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/tournaments/{id}/categories/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := tournamentService.CategoryStats(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				httputil.InternalServerError(w, "Failed to get category stats", err)
				return
			}
			httputil.JSON(w, http.StatusOK, stats)
		})

		r.Post("/tournaments/{id}/captains", func(w http.ResponseWriter, r *http.Request) {
			adminID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			var body struct {
				CaptainIDs []uuid.UUID `json:"captain_ids"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			teams, err := tournamentService.RankCaptains(r.Context(), tournamentID, adminID, body.CaptainIDs)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, teams)
		})

		r.Get("/tournaments/{id}/draft", func(w http.ResponseWriter, r *http.Request) {
			state, err := draftService.GetDraftState(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httputil.NotFound(w, "Draft session not found", err)
					return
				}
				httputil.InternalServerError(w, "Failed to get draft state", err)
				return
			}
			httputil.JSON(w, http.StatusOK, state)
		})

		r.Post("/tournaments/{id}/draft/presence", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			presence.Heartbeat(realtime.DraftChannel(tournamentID), userID)
			httputil.JSON(w, http.StatusOK, map[string]any{
				"online": presence.Online(realtime.DraftChannel(tournamentID)),
			})
		})

		r.Post("/tournaments/{id}/draft/start", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			if err := draftService.StartDraft(r.Context(), tournamentID, userID); err != nil {
				respondServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/draft/{sessionID}/picks", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			sessionID, err := parseIDParam(r, "sessionID")
			if err != nil {
				httputil.BadRequest(w, "Invalid session ID", err)
				return
			}
			var body struct {
				TeamID uuid.UUID `json:"team_id"`
				UserID uuid.UUID `json:"user_id"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			pick, err := draftService.SubmitPick(r.Context(), sessionID, body.TeamID, body.UserID, userID)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, pick)
		})

		r.Get("/draft/{sessionID}/timeline", func(w http.ResponseWriter, r *http.Request) {
			events, err := draftService.Timeline(r.Context(), chi.URLParam(r, "sessionID"))
			if err != nil {
				httputil.InternalServerError(w, "Failed to get draft timeline", err)
				return
			}
			httputil.JSON(w, http.StatusOK, events)
		})

		r.Post("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			matches, err := bracketService.GenerateBracket(r.Context(), tournamentID, userID)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, matches)
		})

		r.Delete("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			if err := bracketService.DeleteBracket(r.Context(), tournamentID, userID); err != nil {
				respondServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/playoffs/assign", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			tournamentID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid tournament ID", err)
				return
			}
			top4, err := bracketService.AssignPlayoffTeams(r.Context(), tournamentID, userID)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, top4)
		})

		r.Post("/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			matchID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid match ID", err)
				return
			}
			var body struct {
				Team1Score int       `json:"team1_score"`
				Team2Score int       `json:"team2_score"`
				WinnerID   uuid.UUID `json:"winner_id"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			match, err := bracketService.ReportResult(r.Context(), matchID, body.Team1Score, body.Team2Score, body.WinnerID, userID)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, match)
		})

		r.Get("/matches/{id}/proposals", func(w http.ResponseWriter, r *http.Request) {
			proposals, err := scheduleService.Proposals(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				httputil.InternalServerError(w, "Failed to list proposals", err)
				return
			}
			httputil.JSON(w, http.StatusOK, proposals)
		})

		r.Post("/matches/{id}/proposals", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			matchID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid match ID", err)
				return
			}
			var body struct {
				ProposedTime time.Time `json:"proposed_time"`
				Notes        string    `json:"notes"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			proposal, err := scheduleService.Propose(r.Context(), matchID, userID, body.ProposedTime, body.Notes)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, proposal)
		})

		r.Post("/proposals/{id}/respond", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			proposalID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid proposal ID", err)
				return
			}
			var body struct {
				Approve bool   `json:"approve"`
				Notes   string `json:"notes"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			proposal, err := scheduleService.Respond(r.Context(), proposalID, userID, body.Approve, body.Notes)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, proposal)
		})

		r.Post("/proposals/{id}/counter", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			proposalID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid proposal ID", err)
				return
			}
			var body struct {
				ProposedTime time.Time `json:"proposed_time"`
				Notes        string    `json:"notes"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			proposal, err := scheduleService.CounterPropose(r.Context(), proposalID, userID, body.ProposedTime, body.Notes)
			if err != nil {
				respondServiceError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, proposal)
		})

		r.Post("/matches/{id}/schedule", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := middleware.GetUserIDFromContext(r.Context())
			matchID, err := parseIDParam(r, "id")
			if err != nil {
				httputil.BadRequest(w, "Invalid match ID", err)
				return
			}
			var body struct {
				ScheduledAt time.Time `json:"scheduled_at"`
			}
			if err := decodeBody(r, &body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if err := scheduleService.AdminSetSchedule(r.Context(), matchID, userID, body.ScheduledAt); err != nil {
				respondServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}
