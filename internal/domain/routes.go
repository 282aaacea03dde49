package domain

import (
	"net/url"
	"strconv"
)

// Page routes of the kiosk front-end.
const (
	RouteScanner = "/"
	RouteFace    = "/face"
)

func PersonRoute(id int64) string {
	return "/person/" + strconv.FormatInt(id, 10)
}

func BookingRoute(id BookingID) string {
	return "/booking/" + url.PathEscape(id.String())
}
