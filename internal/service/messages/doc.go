// Package messages resolves which email service a message must be sent
// through and dispatches single confirmation messages.
//
// The package depends on repository interfaces defined here; Postgres
// implementations live in repository/postgres/. The content merge service
// and the relay are consumed through small interfaces as well so the
// dispatcher can be tested without a database or a provider account.
package messages
