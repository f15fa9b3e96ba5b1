package state

import "strings"

// Route is the discrete handling path chosen for a turn.
type Route string

const (
	RouteCatalog Route = "catalog"
	RouteNotify  Route = "notify"
	RouteBoth    Route = "both"
	RouteDirect  Route = "direct"

	// RouteCollect is produced while an information-gathering dialogue is in flight.
	RouteCollect Route = "collect"
)

// DefaultRoute is used whenever a classification cannot be parsed.
const DefaultRoute = RouteCatalog

// ParseRoute maps free text onto the closed classification set.
func ParseRoute(raw string) (Route, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.Trim(normalized, "\"'`.!¡¿?:;,* \t\r\n")

	switch Route(normalized) {
	case RouteCatalog:
		return RouteCatalog, true
	case RouteNotify:
		return RouteNotify, true
	case RouteBoth:
		return RouteBoth, true
	case RouteDirect:
		return RouteDirect, true
	default:
		return DefaultRoute, false
	}
}

func (r Route) NeedsNotification() bool {
	return r == RouteNotify || r == RouteBoth
}

func (r Route) NeedsCatalog() bool {
	return r == RouteCatalog || r == RouteBoth
}
