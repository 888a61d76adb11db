// Package http provides HTTP handlers and middleware for the pickup games API.
//
// The router exposes the following endpoints:
//   - GET /events: games currently open for signup, soonest first.
//   - GET /events/{id}/signups: the signups of a game in signup order.
//   - POST /events/{id}/signups: registers a nickname. Body: {"nickname","password"}.
//     Responds 201 with the created signup.
//   - POST /events/{id}/signout: removes a signup after checking its password.
//     Same body as signup. Responds 204.
//   - POST /events/{id}/teams: draws teams from the current signups while the
//     draw window is open. GET returns the stored teams.
//   - GET /calendar: the next game, its signup opening and the state of the
//     signup and draw windows.
//   - GET /healthz: store reachability.
//   - GET /metrics: Prometheus exposition, when configured.
//
// Signup and signout attempts are rate limited per browser session. The
// session is identified by the `games_session` cookie, issued on first contact.
// The cookie is marked Secure when the request arrived over TLS or with
// X-Forwarded-Proto: https.
//
// Error responses carry {"error_code","message","errors"}; the message is fit
// for display to participants. Rate limited responses add a Retry-After header
// and "retry_after_seconds".
package http
