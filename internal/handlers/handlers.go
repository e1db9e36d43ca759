// Package handlers provides HTTP request handlers
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/findosh/northbank/internal/config"
	"github.com/findosh/northbank/internal/models"
	"github.com/findosh/northbank/internal/services/admin"
	"github.com/findosh/northbank/internal/services/auth"
	"github.com/findosh/northbank/internal/services/ledger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; every request schema is tiny
const maxBodyBytes = 1 << 20

var errInvalidBody = apperr.New(apperr.KindValidation, "Invalid request body")

// Handler contains all HTTP handlers and dependencies
type Handler struct {
	cfg          *config.Config
	logger       *zap.Logger
	validate     *validator.Validate
	authService  *auth.Service
	ledger       *ledger.Service
	adminService *admin.Service
}

// New creates a new handler with all dependencies
func New(
	cfg *config.Config,
	logger *zap.Logger,
	authService *auth.Service,
	ledgerService *ledger.Service,
	adminService *admin.Service,
) *Handler {
	return &Handler{
		cfg:          cfg,
		logger:       logger.Named("http"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		authService:  authService,
		ledger:       ledgerService,
		adminService: adminService,
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a closed-schema JSON body into dst and runs its
// validate tags
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Wrap(apperr.KindValidation, "Request body too large", err)
		}
		if isMoneyError(err) {
			return apperr.Wrap(apperr.KindInvalidAmount, "Invalid amount", err)
		}
		return apperr.Wrap(errInvalidBody.Kind, errInvalidBody.Message, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.New(apperr.KindValidation, "Invalid "+verrs[0].Field())
		}
		return apperr.Wrap(errInvalidBody.Kind, errInvalidBody.Message, err)
	}
	return nil
}

func isMoneyError(err error) bool {
	return errors.Is(err, models.ErrInvalidMoney) ||
		errors.Is(err, models.ErrMoneyPrecision) ||
		errors.Is(err, models.ErrMoneyRange)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError sends the error envelope. Unclassified and server side errors
// are logged with their cause.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err).Status() >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	apperr.Write(w, err)
}
