// Package rest implements HTTP handlers for the messaging endpoints.
// This package serves as the primary adapter, translating inbound webhook
// requests into domain operations and formatting replies for clients.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
	"github.com/textcast/textcast/internal/middleware"
)

// Canned replies for failure modes that must never leak internals to the
// sender. Parser errors carry their own user-displayable text and bypass
// these.
const (
	replyProvidersDown = "Sorry, weather data is temporarily unavailable. Please try again in a few minutes."
	replyTimeout       = "Sorry, that took too long to answer. Please try again."
	replyInternal      = "Sorry, something went wrong on our side. Please try again later."
)

// defaultHandlingTimeout bounds one inbound message end to end, including
// every provider attempt the failover loop makes.
const defaultHandlingTimeout = 10 * time.Second

// MessageHandler handles inbound message webhooks. It acts as the primary
// adapter between HTTP transport and the message service, managing request
// parsing, validation, reply mapping, and optional outbound delivery.
type MessageHandler struct {
	// service processes inbound message text into a reply
	service ports.MessageService

	// sender transmits the reply back through an SMS gateway; nil when no
	// gateway is configured and replies are webhook-only
	sender ports.MessageSender

	// handlingTimeout bounds the processing of one message
	handlingTimeout time.Duration

	// validate checks decoded requests for required fields
	validate *validator.Validate

	// logger records request processing events and errors
	logger *zap.Logger
}

// NewMessageHandler creates a new HTTP handler for inbound messages. A nil
// sender disables outbound delivery; a zero timeout falls back to the
// default bound.
func NewMessageHandler(
	service ports.MessageService,
	sender ports.MessageSender,
	handlingTimeout time.Duration,
	logger *zap.Logger,
) *MessageHandler {
	if handlingTimeout <= 0 {
		handlingTimeout = defaultHandlingTimeout
	}

	return &MessageHandler{
		service:         service,
		sender:          sender,
		handlingTimeout: handlingTimeout,
		validate:        validator.New(),
		logger:          logger,
	}
}

// messageRequest is the decoded webhook payload. Both JSON bodies and
// form-encoded gateway callbacks map onto it.
type messageRequest struct {
	From     string `json:"from" validate:"required"`
	Body     string `json:"body" validate:"required"`
	Provider string `json:"provider"`
}

// MessageResponse represents the JSON structure returned by the webhook.
type MessageResponse struct {
	To    string `json:"to"`
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleMessage handles POST requests carrying one inbound message.
//
// Response codes:
//   - 200: Success with MessageResponse JSON; the reply field is never empty
//   - 400: Malformed or incomplete request (INVALID_REQUEST)
//   - 502: Reply produced but outbound delivery failed (DELIVERY_FAILED);
//     the reply text is still included for webhook-style consumers
func (h *MessageHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			"INVALID_REQUEST",
			"Both 'from' and 'body' are required",
		)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.handlingTimeout)
	defer cancel()

	reply, err := h.service.HandleMessage(ctx, req.From, req.Body, req.Provider)

	if err != nil {
		reply = h.replyForError(r, err)
	}

	if h.sender != nil {
		if err := h.sender.Send(ctx, req.From, reply); err != nil {
			h.logger.Error("reply delivery failed",
				zap.Error(err),
				zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			)

			h.respondWithJSON(w, http.StatusBadGateway, MessageResponse{
				To:    req.From,
				Reply: reply,
				Error: "DELIVERY_FAILED",
			})

			return
		}
	}

	h.respondWithJSON(w, http.StatusOK, MessageResponse{
		To:    req.From,
		Reply: reply,
	})
}

// decodeRequest accepts either a JSON body or a form-encoded gateway
// callback, keyed on Content-Type.
func (h *MessageHandler) decodeRequest(r *http.Request) (messageRequest, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return messageRequest{}, errors.New("malformed form body")
		}

		return messageRequest{
			From:     r.PostForm.Get("From"),
			Body:     r.PostForm.Get("Body"),
			Provider: r.PostForm.Get("Provider"),
		}, nil
	}

	var req messageRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return messageRequest{}, errors.New("malformed JSON body")
	}

	return req, nil
}

// replyForError maps a processing error to the text sent back to the user.
//
// Error mappings:
//   - LocationFormatError / LocationLookupError -> own message, verbatim
//   - AllProvidersFailedError -> temporary-unavailability apology
//   - context deadline -> timeout apology
//   - anything else -> generic apology; detail is logged, never shown
func (h *MessageHandler) replyForError(r *http.Request, err error) string {
	var formatErr *domain.LocationFormatError
	var lookupErr *domain.LocationLookupError
	var providersErr *domain.AllProvidersFailedError

	switch {
	case errors.As(err, &formatErr):
		return formatErr.Message
	case errors.As(err, &lookupErr):
		return lookupErr.Message
	case errors.As(err, &providersErr):
		h.logger.Warn("all providers failed",
			zap.String("failures", providersErr.Error()),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)

		return replyProvidersDown
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("message handling timed out",
			zap.Duration("timeout", h.handlingTimeout),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)

		return replyTimeout
	default:
		h.logger.Error("unexpected error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)

		return replyInternal
	}
}

// respondWithJSON sends a JSON response with the specified status code.
func (h *MessageHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
func (h *MessageHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
