package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/AnshRaj112/flags-survey-backend/internal/dispatch"
	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/models"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
	"github.com/AnshRaj112/flags-survey-backend/internal/submission"
)

// MaxSubmitBodyBytes caps the POST /submit body.
const MaxSubmitBodyBytes = 64 << 10

// Dispatcher delivers a normalized submission to its sinks.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *models.Submission) dispatch.Report
}

// DegradedResponse is returned with 202 when only some sinks accepted a submission.
type DegradedResponse struct {
	Degraded bool     `json:"degraded"`
	Failed   []string `json:"failed"`
}

type SubmitHandler struct {
	normalizer *submission.Normalizer
	dispatcher Dispatcher
	sessions   *session.Manager
}

func NewSubmitHandler(normalizer *submission.Normalizer, dispatcher Dispatcher, sessions *session.Manager) *SubmitHandler {
	return &SubmitHandler{normalizer: normalizer, dispatcher: dispatcher, sessions: sessions}
}

// Submit accepts a survey response: POST /submit
func (h *SubmitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	sub, err := h.normalizer.Normalize(sess, http.MaxBytesReader(w, r.Body, MaxSubmitBodyBytes))
	if err != nil {
		var verr *submission.ValidationError
		switch {
		case errors.Is(err, submission.ErrUnauthenticated):
			writeError(w, http.StatusBadRequest, "Not signed in")
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		default:
			logger.WithError(err).Error("submit: normalize failed")
			writeError(w, http.StatusInternalServerError, "Failed to read submission")
		}
		return
	}

	// a client hanging up mid-submit must not cancel delivery to either sink
	report := h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), sub)
	log := logger.WithFields(logger.Fields{
		"submission": sub.ID.String(),
		"status":     report.Status.String(),
	})

	if !report.Accepted() {
		log.Error("submit: no sink accepted the submission")
		writeError(w, http.StatusBadGateway, "Submission could not be delivered, please try again")
		return
	}

	sess.Destroy()
	if err := h.sessions.Commit(r.Context(), w, sess); err != nil {
		// the submission is stored but the session survives until it expires,
		// so a resubmission stays possible
		log.WithError(err).Error("submit: delete session after delivery")
	}

	if report.Status == dispatch.Degraded {
		log.WithFields(logger.Fields{"failed": report.Failed}).Warn("submit: delivered degraded")
		writeJSON(w, http.StatusAccepted, DegradedResponse{Degraded: true, Failed: report.Failed})
		return
	}

	log.Info("submit: delivered")
	w.WriteHeader(http.StatusOK)
}
