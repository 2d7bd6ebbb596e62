// Package httputil holds the JSON response helpers shared by the status
// endpoints.
package httputil
