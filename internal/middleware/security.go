// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// SecureHeaders adds security headers to every response. The surface is
// a JSON API, so the policy is stricter than a page-serving app: nothing
// here should ever be framed or sniffed into a renderable type.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		// Never MIME-sniff responses into something executable.
		h.Set("X-Content-Type-Options", "nosniff")

		// An API has no pages to embed.
		h.Set("X-Frame-Options", "DENY")

		// Session cookies ride on these responses; keep them out of
		// shared caches.
		h.Set("Cache-Control", "no-store")

		// Don't leak project ids through the Referer header.
		h.Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}
