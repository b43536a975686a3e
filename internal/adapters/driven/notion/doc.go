// Package notion reads Notion workspaces through github.com/jomei/notionapi
// and turns what it reads into indexing jobs.
//
// Requests share one token bucket per client and honour Retry-After on 429
// responses. Authentication goes through an oauth2.TokenSource, so static
// integration tokens and refreshed OAuth tokens are handled the same way.
//
// Two triggers are provided:
//   - Enumerator walks a whole workspace at connection time (bulk load).
//   - Fetcher reads single resources and submits them once the read succeeds.
package notion
