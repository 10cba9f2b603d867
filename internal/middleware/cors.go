package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// OriginChecker decides whether a browser origin may call the API with
// credentials. *auth.Origins implements it.
type OriginChecker interface {
	Allowed(origin string) bool
}

// CORS answers preflight requests and sets the Access-Control headers for
// origins accepted by allowed.
//
// An origin function is used instead of a static list because preview
// deployments live on arbitrary *.vercel.app subdomains.
func CORS(allowed OriginChecker) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: allowed.Allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Admin-Secret"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler
}
