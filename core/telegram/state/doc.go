// Package state keeps the per-chat conversation record: one structured value
// per chat id holding the dialog step and the category chosen for a pending
// goal. Absence of a record means the chat is idle.
package state
