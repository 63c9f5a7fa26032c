package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"food-console/console"
)

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	menu, err := s.console.Menu(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, menu)
}

func (s *Server) insertMenuItem(w http.ResponseWriter, r *http.Request) {
	s.insertRow(w, r, s.console.InsertMenuItem)
}

func (s *Server) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	s.updateRow(w, r, s.console.UpdateMenuItem)
}

type categoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) insertCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cat, err := s.console.InsertCategory(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, cat)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	s.updateRow(w, r, s.console.UpdateCategory)
}

func (s *Server) listAddons(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	addons, err := s.console.Addons(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, addons)
}

type addonRequest struct {
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

func (s *Server) insertAddon(w http.ResponseWriter, r *http.Request) {
	var req addonRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	addon, err := s.console.InsertAddon(r.Context(), req.ItemID, req.Name, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, addon)
}

func (s *Server) deleteAddon(w http.ResponseWriter, r *http.Request) {
	if err := s.console.DeleteAddon(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPromos(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	promos, err := s.console.Promos(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, promos)
}

func (s *Server) insertPromo(w http.ResponseWriter, r *http.Request) {
	s.insertRow(w, r, s.console.InsertPromo)
}

func (s *Server) updatePromo(w http.ResponseWriter, r *http.Request) {
	s.updateRow(w, r, s.console.UpdatePromo)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.console.Reviews(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, page)
}

func (s *Server) auditLog(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := console.AuditFilter{
		Branch:  p.Branch,
		Entity:  r.URL.Query().Get("entity"),
		ActorID: r.URL.Query().Get("actor_id"),
		Search:  r.URL.Query().Get("q"),
		Limit:   p.Limit,
		Offset:  p.Offset,
	}
	if f.DateFrom, err = timeParam(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.DateTo, err = timeParam(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.console.AuditLog(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, page)
}

func (s *Server) getDeliverySettings(w http.ResponseWriter, r *http.Request) {
	row, err := s.console.DeliverySettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, map[string]any{"settings": row})
}

func (s *Server) saveDeliverySettings(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.console.SaveDeliverySettings(r.Context(), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, map[string]any{"settings": out})
}

func (s *Server) getRestaurantSettings(w http.ResponseWriter, r *http.Request) {
	res, err := s.console.RestaurantSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, res)
}

func (s *Server) saveRestaurantSettings(w http.ResponseWriter, r *http.Request) {
	row, err := decodeRow(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.console.SaveRestaurantSettings(r.Context(), row)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, res)
}
