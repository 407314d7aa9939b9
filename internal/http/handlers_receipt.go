package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"incassi/internal/core"
	"incassi/internal/log"
	"incassi/internal/services"
	"incassi/internal/storage"
)

// handleCreateReceipt validates the entry form and stores the receipt.
// A rejected form keeps its values: only success triggers form:reset.
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	logger := log.FromContext(r.Context())

	parser := NewRequestBodyParser(r)
	if resp := ParseBodyOrFail(parser); resp != nil {
		resp.Write(w)
		return
	}
	now := s.localNow()
	in := ParseNewReceipt(parser, now)

	rec, err := s.ledger.Create(r.Context(), sess.UserID, in)
	if err != nil {
		if services.IsValidation(err) {
			UnprocessableEntityError(validationMessage(err)).Write(w)
			return
		}
		logger.LogError(r.Context(), "Receipt save failed", err, log.OpCreate, log.NewFields().WithOwner(sess.UserID))
		InternalServerError("Errore durante il salvataggio, riprova").Write(w)
		return
	}
	s.countCreated()

	logger.InfoContext(r.Context(), "Receipt recorded",
		log.NewFields().
			WithOwner(sess.UserID).
			WithOperation(log.OpCreate).
			WithReceipt(rec.ID, rec.Date.ISO(), rec.Amount.Cents, string(rec.PaymentType)).
			ToSlice()...)

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerFormReset(core.DateOf(now).ISO()).
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Incasso di " + rec.Amount.FormatEuro(s.lang) + " salvato").
		Write(w)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Inserisci un importo valido (es. 12,50)"
	case errors.Is(err, core.ErrInvalidPaymentType):
		return "Tipo di pagamento non valido"
	case errors.Is(err, core.ErrInvalidDate):
		return "Data non valida"
	default:
		return "Dati non validi"
	}
}

// handleDeleteReceipt removes a receipt after explicit confirmation.
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	logger := log.FromContext(r.Context())

	parser := NewRequestBodyParser(r)
	if resp := ParseBodyOrFail(parser); resp != nil {
		resp.Write(w)
		return
	}
	if parser.Get("confirm") != "yes" {
		BadRequestError("Conferma l'eliminazione").Write(w)
		return
	}

	id := sanitizeInput(chi.URLParam(r, "id"))
	err := s.ledger.Delete(r.Context(), sess.UserID, id)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Incasso non trovato").TriggerLedgerRefresh().Write(w)
		return
	case services.IsValidation(err):
		BadRequestError("Incasso non valido").Write(w)
		return
	default:
		logger.LogError(r.Context(), "Receipt delete failed", err, log.OpDelete,
			log.NewFields().WithOwner(sess.UserID).WithReceipt(id, "", 0, ""))
		InternalServerError("Eliminazione non riuscita, riprova").Write(w)
		return
	}
	s.countDeleted()

	logger.InfoContext(r.Context(), "Receipt deleted",
		log.FieldOwnerID, sess.UserID, log.FieldReceiptID, id, log.FieldOperation, log.OpDelete)

	NewHTMXResponse().
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Incasso eliminato").
		Write(w)
}
