// Package admincli implements the operator commands of cmd/admin: schema
// migration, starter-data seeding and account creation with a hidden
// password prompt.
package admincli
