// Package httputil provides the JSON request and response helpers shared by the
// admin API handlers.
//
// Every error body has the same shape:
//
//	{"error": "forbidden", "redirect": "/admin/dashboard"}
//
// redirect is set when the client should navigate somewhere else, for example
// after a guard denial.
package httputil
