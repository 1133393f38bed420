// Package gateway implements driven.IngestionGateway, the boundary the
// pipeline hands normalised batches to.
//
// Two implementations exist:
//
//   - Local calls the Ingestor in the same process. Authentication is a no-op.
//   - HTTP logs into POST /auth/login and submits to POST /atos/batch with
//     the bearer token, exactly as an external client of the API would.
//
// The HTTP gateway caches its token with golang.org/x/oauth2 and logs in
// again only when the token has expired.
package gateway
