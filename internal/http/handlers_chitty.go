package http

import (
	"net/http"

	"chitfund/internal/core"
	"chitfund/internal/services"
)

type createChittyRequest struct {
	Name         string     `json:"name"`
	Amount       core.Money `json:"amount"`
	TotalMembers int        `json:"totalMembers"`
	TotalMonths  int        `json:"totalMonths"`
	MemberNames  []string   `json:"memberNames"`
}

func (s *Server) handleCreateChitty(w http.ResponseWriter, r *http.Request) {
	var req createChittyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	chitty, err := s.registry.CreateChitty(r.Context(), services.CreateChittyRequest{
		Name:         req.Name,
		Amount:       req.Amount,
		TotalMembers: req.TotalMembers,
		TotalMonths:  req.TotalMonths,
		MemberNames:  req.MemberNames,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, chitty)
}

func (s *Server) handleListChitties(w http.ResponseWriter, r *http.Request) {
	chitties, err := s.registry.ListChitties(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chitties)
}

func (s *Server) handleGetChitty(w http.ResponseWriter, r *http.Request) {
	chitty, err := s.registry.GetChitty(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chitty)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	lifted, err := liftedFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := s.registry.ListMembers(r.Context(), r.PathValue("id"), lifted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, members)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	chittyID := r.PathValue("id")
	balance, err := s.slips.OutstandingBalance(r.Context(), chittyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, struct {
		ChittyID string     `json:"chittyId"`
		Balance  core.Money `json:"balance"`
	}{ChittyID: chittyID, Balance: balance})
}
