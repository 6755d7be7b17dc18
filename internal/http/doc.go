// Package http provides HTTP handlers and middleware for the calendar API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a login token. Body: {"email","password"}. Response:
//     {"token","expires_at","requester":{"user_id","is_admin","timezone"}} with the
//     token also surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the token taken from the Authorization header or the
//     session cookie. Returns 204 No Content and clears the cookie.
//   - POST /refresh: rotates the current token and extends its expiry.
//   - POST /create-session, POST /update-session: book and edit sessions. Both
//     answer {"session_id"}; slot conflicts come back as 400 with errors.slot.
//   - POST /calendar-query: unavailable periods and the caller's bookings for a date.
//   - GET /sessions/today: the caller's approved sessions starting today.
//   - GET /links/{identifier}: redirects to the wrapped meeting URL while the
//     session is joinable.
//   - GET /blackouts?date=, POST /blackouts, PUT /blackouts/{id}, DELETE /blackouts/{id}:
//     blackout periods exchanging the `blackoutRequest` payload defined in
//     blackout_handler.go. Listing is open to any signed in user; changes need
//     an administrator.
//
// Every endpoint except POST /login requires a valid login token.
package http
