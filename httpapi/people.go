package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"food-console/models"
)

type selectRequest struct {
	BranchID string `json:"branch_id"`
}

func (s *Server) getBranches(w http.ResponseWriter, r *http.Request) {
	WriteJSON(s.log, w, http.StatusOK, s.branchesView())
}

func (s *Server) selectBranch(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.BranchID == "" {
		s.writeError(w, r, badRequest("branch_id is required"))
		return
	}
	if err := s.scope.Select(r.Context(), req.BranchID); err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, s.branchesView())
}

type branchesResponse struct {
	Selected      string          `json:"selected"`
	SelectedLabel string          `json:"selected_label"`
	AllowAll      bool            `json:"allow_all"`
	Branches      []models.Branch `json:"branches"`
}

func (s *Server) branchesView() branchesResponse {
	st := s.scope.State()
	return branchesResponse{
		Selected:      st.Selected,
		SelectedLabel: s.scope.Label(st.Selected),
		AllowAll:      st.AllowAll,
		Branches:      st.Branches,
	}
}

func (s *Server) listRiders(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	riders, err := s.console.Riders(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, riders)
}

func (s *Server) insertRider(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.console.InsertRider(r.Context(), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, res)
}

func (s *Server) updateRider(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.console.UpdateRider(r.Context(), chi.URLParam(r, "id"), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, res)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.console.UpdateProfile(r.Context(), chi.URLParam(r, "id"), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, res)
}

func (s *Server) listStaff(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	staff, err := s.console.StaffProfiles(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, staff)
}

func (s *Server) listAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.console.StaffAllowlist(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, entries)
}

type allowlistRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) upsertAllowlist(w http.ResponseWriter, r *http.Request) {
	var req allowlistRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	row, err := s.console.UpsertStaffAllowlist(r.Context(), req.Email, req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, row)
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	customers, err := s.console.Customers(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, customers)
}

func (s *Server) customerAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.console.AddressesForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, addrs)
}

func (s *Server) customerOrders(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.console.OrdersByUsers(r.Context(), []string{chi.URLParam(r, "id")}, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, orders)
}
