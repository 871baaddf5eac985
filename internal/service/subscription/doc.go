// Package subscription implements the public subscribe and confirm flows.
//
// Subscribe creates (or finds) a workspace subscriber and sends a
// confirmation email when the subscriber is new or has sat unconfirmed for
// longer than StaleAfter. Confirm matches a subscriber by email and hash and
// marks it confirmed.
//
// The service depends on the SubscriberStore interface defined in this
// package; the Postgres implementation lives in repository/postgres/.
package subscription
