// Package snapshot implements the SQL operations behind an inventory
// snapshot: creating an empty copy of the reference table, loading the CSV
// into it (bulk COPY or row-wise INSERT), and republishing the read view.
//
// Every operation opens its own connection through a pvsload.Connector and
// closes it before returning, whatever the outcome. Failures are returned as
// *pvsload.DatabaseOperationError; deciding whether to keep going is left to
// the caller.
//
// # Identifiers
//
// Table and view names are quoted with pgx.Identifier. A dotted name such as
// "inventory.all_vms" is treated as schema-qualified.
package snapshot
