// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and the
authenticated identity lookup.
*/
package requestutil

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ikusare/internal/platform/ctxutil"
	"github.com/taibuivan/ikusare/internal/platform/sec"
)

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Claims extracts the authenticated operator claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
Operator returns the operator name of an authenticated request, or "anonymous".
*/
func Operator(request *http.Request) string {
	if claims := Claims(request); claims != nil {
		return claims.Operator
	}
	return "anonymous"
}
