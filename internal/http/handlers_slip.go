package http

import (
	"net/http"
)

func (s *Server) handleGenerateSlip(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := s.slips.GenerateSlip(r.Context(), r.PathValue("id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, slip)
}

func (s *Server) handleGetSlip(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := s.slips.GetSlip(r.Context(), r.PathValue("id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, slip)
}

func (s *Server) handleListSlips(w http.ResponseWriter, r *http.Request) {
	slips, err := s.slips.ListSlips(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, slips)
}

func (s *Server) handleRecomputeSlip(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := s.slips.RecomputeSlip(r.Context(), r.PathValue("id"), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, slip)
}

type liftRequest struct {
	MemberID string `json:"memberId"`
}

func (s *Server) handleMarkLifted(w http.ResponseWriter, r *http.Request) {
	var req liftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := s.slips.MarkLifted(r.Context(), r.PathValue("slipId"), req.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, slip)
}

type paymentRequest struct {
	MemberID string `json:"memberId"`
	Paid     bool   `json:"paid"`
}

func (s *Server) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	record, err := s.slips.SetPaymentStatus(r.Context(), r.PathValue("slipId"), req.MemberID, req.Paid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, record)
}
