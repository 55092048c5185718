package http

import (
	"net/http"

	"gastos/internal/ledger"
)

// handleOverview returns income, expenses, balance and the category
// breakdown of one month.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.store.Today())
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	ov := s.store.Overview(month, accountQuery(r))
	NewJSONResponse().Data(newOverviewView(ov)).Write(w)
}

// handleProjection returns the monthly expense totals around the current
// month, installments included.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	account := accountQuery(r)
	window := s.store.Projection(account, s.store.Today())
	sum := ledger.SummarizeWindow(window)

	v := projectionView{
		AccountID: account,
		Months:    make([]monthTotalView, 0, len(window)),
		Past:      newAmountView(sum.Past),
		Current:   newAmountView(sum.Current),
		Future:    newAmountView(sum.Future),
	}
	for _, m := range window {
		v.Months = append(v.Months, monthTotalView{Month: m.Month, Total: newAmountView(m.Total), Period: m.Period})
	}
	NewJSONResponse().Data(v).Write(w)
}
