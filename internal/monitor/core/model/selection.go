package model

// Selection is what the operator is looking at.
type Selection struct {
	BusID *int64       `json:"selected_bus_id"`
	Route []RoutePoint `json:"active_route"`
}
