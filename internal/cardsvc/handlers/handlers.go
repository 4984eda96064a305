package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	log "github.com/sirupsen/logrus"
	"github.com/sitepass/card-services/internal/cardsvc/service"
)

type Handler struct {
	tokenAuth        *jwtauth.JWTAuth
	cardService      *service.CardService
	locationService  *service.LocationService
	proximityService *service.ProximityService
}

func NewHandler(cardService *service.CardService, locationService *service.LocationService, proximityService *service.ProximityService) *Handler {
	return &Handler{
		cardService:      cardService,
		locationService:  locationService,
		proximityService: proximityService,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// statusForError maps business errors to client codes; anything
// unrecognized is a server error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrVisitorNotFound),
		errors.Is(err, service.ErrSupplierNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCardSNTaken),
		errors.Is(err, service.ErrCardInactive),
		errors.Is(err, service.ErrCardAssigned),
		errors.Is(err, service.ErrCardUnassigned),
		errors.Is(err, service.ErrVisitorHasCard),
		errors.Is(err, service.ErrVisitorCompleted):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		log.Errorf("Error handling request: %v", err)
	}
	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

func cardIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "cardId"), 10, 64)
}

func (h *Handler) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	var request struct {
		CardSN     string `json:"card_sn"`
		SupplierID int64  `json:"supplier_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	card, err := h.cardService.CreateCard(r.Context(), request.CardSN, request.SupplierID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "card created", Code: http.StatusCreated, Data: card})
}

func (h *Handler) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: card})
}

func (h *Handler) UpdateCardHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	var request struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	card, err := h.cardService.SetCardActive(r.Context(), cardID, request.IsActive)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "card updated", Code: http.StatusOK, Data: card})
}

func (h *Handler) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	if err := h.cardService.RemoveCard(r.Context(), cardID); err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "card removed", Code: http.StatusOK})
}

func (h *Handler) RecordLocationHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	var request struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Accuracy  *float64 `json:"accuracy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	history, err := h.locationService.RecordLocation(r.Context(), cardID, request.Latitude, request.Longitude, request.Accuracy)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "location recorded", Code: http.StatusCreated, Data: history})
}

func (h *Handler) LastLocationHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	loc, err := h.locationService.GetLastLocation(r.Context(), cardID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if loc == nil {
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "no location recorded for card"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: loc})
}

func (h *Handler) LocationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.locationService.GetLocationHistory(r.Context(), cardID, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: history})
}

func (h *Handler) NearbyCardsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latitude, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	longitude, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "latitude and longitude are required"})
		return
	}

	radius := 0.0
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid radius"})
			return
		}
		radius = parsed
	}

	cards, err := h.proximityService.GetNearbyCards(r.Context(), latitude, longitude, radius)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: cards})
}

func (h *Handler) AssignCardHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	var request struct {
		VisitorID int64 `json:"visitor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}

	card, err := h.cardService.AssignToVisitor(r.Context(), cardID, request.VisitorID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "card assigned", Code: http.StatusOK, Data: card})
}

func (h *Handler) UnassignCardHandler(w http.ResponseWriter, r *http.Request) {
	cardID, err := cardIDParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid card id"})
		return
	}

	card, err := h.cardService.UnassignFromVisitor(r.Context(), cardID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "card unassigned", Code: http.StatusOK, Data: card})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "card service is running at port " + os.Getenv("CARD_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
