package notify

import "food-console/models"

type RouteKind string

const (
	RouteOrders   RouteKind = "orders"
	RouteOrder    RouteKind = "order"
	RouteChat     RouteKind = "chat"
	RouteReview   RouteKind = "review"
	RouteDelivery RouteKind = "delivery"
)

// Route is where a notification takes the operator.
type Route struct {
	Kind RouteKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

func (r Route) Path() string {
	switch r.Kind {
	case RouteOrder:
		return "orders.html#" + r.ID
	case RouteChat:
		return "chats.html#" + r.ID
	case RouteReview:
		return "reviews.html#" + r.ID
	case RouteDelivery:
		return "deliveries.html#" + r.ID
	}
	return "orders.html"
}

// Legacy notification types from before entity_type existed.
const (
	TypeNewOrder        = "new_order"
	TypeCustomerMessage = "customer_message"
)

// RouteFor resolves n by entity type and id first, then by the legacy type
// convention, then by a bare entity_id as an order, then to the orders list.
func RouteFor(n models.Notification) Route {
	if n.EntityType != "" && n.EntityID != "" {
		switch n.EntityType {
		case "order":
			return Route{Kind: RouteOrder, ID: n.EntityID}
		case "chat", "chat_message":
			return Route{Kind: RouteChat, ID: n.EntityID}
		case "review":
			return Route{Kind: RouteReview, ID: n.EntityID}
		case "delivery":
			return Route{Kind: RouteDelivery, ID: n.EntityID}
		}
	}
	switch n.Type {
	case TypeNewOrder, TypeCustomerMessage:
		// Both legacy types carry the order id; a customer message is read
		// from the order page.
		if n.EntityID != "" {
			return Route{Kind: RouteOrder, ID: n.EntityID}
		}
		return Route{Kind: RouteOrders}
	}
	if n.EntityID != "" {
		return Route{Kind: RouteOrder, ID: n.EntityID}
	}
	return Route{Kind: RouteOrders}
}

// Icon is the marker shown next to n.
func Icon(n models.Notification) string {
	switch {
	case n.Type == TypeNewOrder || n.EntityType == "order":
		return "🧾"
	case n.Type == TypeCustomerMessage || n.EntityType == "chat" || n.EntityType == "chat_message":
		return "💬"
	}
	return "🔔"
}
