package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"incassi/internal/auth"
	"incassi/internal/core"
	"incassi/internal/export"
	"incassi/internal/log"
	"incassi/internal/services"
)

// session returns the signed-in user set by RequireSession. Handlers behind
// that middleware can rely on ok being true.
func session(r *http.Request) (auth.Session, bool) {
	return auth.FromContext(r.Context())
}

// loadView resolves the criteria in the query string and runs the ledger
// for the session owner. On failure the error response is already written.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (services.LedgerView, bool) {
	sess, ok := session(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return services.LedgerView{}, false
	}
	now := s.localNow()
	crit := ParseCriteria(r.URL.Query(), now)

	view, err := s.ledger.View(r.Context(), sess.UserID, crit, now)
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Ledger view failed", err, log.OpList,
			log.NewFields().WithOwner(sess.UserID))
		InternalServerError("Impossibile caricare gli incassi").Write(w)
		return services.LedgerView{}, false
	}
	return view, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	sess, _ := session(r)

	now := s.localNow()
	crit := view.Criteria
	data := pageData{
		Email:        sess.Email,
		Today:        core.DateOf(now).ISO(),
		PaymentTypes: paymentOptions(core.Cash),
		Periods:      periodOptions(crit.Period),
		TypeFilters:  typeFilterOptions(crit.Type),
		Criteria:     crit,
		From:         core.DateOf(now).ISO(),
		To:           core.DateOf(now).ISO(),
		Ledger:       newLedgerData(view, s.lang),
	}
	if crit.Period == core.PeriodRange {
		data.RangeSelected = true
		data.From = crit.From.ISO()
		data.To = crit.To.ISO()
	}

	s.render(w, r, "index.html", data)
}

// handleLedger renders the ledger partial for the current filters.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	s.render(w, r, "ledger", newLedgerData(view, s.lang))
}

// handleChart returns the pie chart slices for the current filters.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	NewHTMXResponse().JSON(newChartSlices(view.Totals, s.lang)).Write(w)
}

// handleExport sends the visible rows as an xlsx or csv attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	sess, _ := session(r)
	logger := log.FromContext(r.Context())
	format := export.ParseFormat(r.URL.Query().Get("format"))

	data, err := s.exporter.Render(format, view.Visible)
	if errors.Is(err, export.ErrNothingToExport) {
		logger.InfoContext(r.Context(), "Export refused: no rows",
			log.FieldOwnerID, sess.UserID, log.FieldOperation, log.OpExport)
		UnprocessableEntityError("Nessun dato da esportare per i filtri selezionati").Write(w)
		return
	}
	if err != nil {
		logger.LogError(r.Context(), "Export failed", err, log.OpExport, log.NewFields().WithOwner(sess.UserID))
		InternalServerError("Errore durante l'esportazione").Write(w)
		return
	}
	s.countExported()

	filename := export.Filename(view.Filter, format)
	NewHTMXResponse().
		Header("Content-Type", format.ContentType()).
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename)).
		Header("Content-Length", strconv.Itoa(len(data))).
		Body(data).
		Write(w)
}
