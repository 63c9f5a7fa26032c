package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"food-console/console"
	"food-console/delivery"
)

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := console.OrderFilter{
		Branch:        p.Branch,
		Status:        r.URL.Query().Get("status"),
		PaymentStatus: r.URL.Query().Get("payment_status"),
		Search:        r.URL.Query().Get("q"),
		Limit:         p.Limit,
		Offset:        p.Offset,
	}
	if f.DateFrom, err = timeParam(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.DateTo, err = timeParam(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.MinTotal, err = floatParam(r, "min_total"); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.console.ListOrders(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, page)
}

func (s *Server) recentOrders(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.console.RecentOrders(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, orders)
}

func (s *Server) ordersRange(w http.ResponseWriter, r *http.Request) {
	f := console.RangeFilter{
		Branch:        r.URL.Query().Get("branch"),
		Type:          r.URL.Query().Get("type"),
		PaymentMethod: r.URL.Query().Get("payment_method"),
	}
	var err error
	if f.DateFrom, err = timeParam(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if f.DateTo, err = timeParam(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.console.OrdersRange(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, page)
}

func (s *Server) ordersForStatus(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.console.OrdersForStatus(r.Context(), chi.URLParam(r, "status"), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, orders)
}

func (s *Server) orderDetails(w http.ResponseWriter, r *http.Request) {
	d, err := s.console.OrderDetails(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("branch"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if d == nil {
		WriteJSON(s.log, w, http.StatusNotFound, &APIError{Code: "not_found", Message: "order not found"})
		return
	}
	WriteJSON(s.log, w, http.StatusOK, d)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.console.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if n == 0 {
		WriteJSON(s.log, w, http.StatusNotFound, &APIError{Code: "not_found", Message: "order not found"})
		return
	}
	WriteJSON(s.log, w, http.StatusOK, map[string]int64{"affected": n})
}

func (s *Server) listDeliveries(w http.ResponseWriter, r *http.Request) {
	p, err := listParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ds, err := s.console.Deliveries(r.Context(), console.DeliveryFilter{
		Branch:  p.Branch,
		Status:  r.URL.Query().Get("status"),
		RiderID: r.URL.Query().Get("rider_id"),
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, ds)
}

type assignRequest struct {
	OrderID string `json:"order_id"`
	RiderID string `json:"rider_id"`
}

func (s *Server) assignDelivery(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.console.AssignDelivery(r.Context(), req.OrderID, req.RiderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusCreated, d)
}

func (s *Server) advanceDelivery(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.console.AdvanceDelivery(r.Context(), chi.URLParam(r, "id"), delivery.Status(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(s.log, w, http.StatusOK, d)
}
