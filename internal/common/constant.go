// Package common contains shared constants and sentinel errors used across
// TypicalTools components.
package common

const (
	// SessionCookieName carries the anonymous browsing session identifier.
	SessionCookieName = "tt_session"

	// AuthCookieName carries the signed staff credential.
	AuthCookieName = "tt_auth"

	// CSRFCookieName and CSRFFieldName implement the double-submit token.
	CSRFCookieName = "tt_csrf"
	CSRFFieldName  = "csrf_token"

	// FlashCookieName carries a one-shot banner message between redirects.
	FlashCookieName = "tt_flash"
)
