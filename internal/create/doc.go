// Package create holds the creators that turn a user request into a
// registered instance.
//
// Every creator goes through Base: the subset name is validated, the asset
// and task are resolved against the project database, pre-create options are
// resolved through the creator's attribute definitions, and the instance is
// registered in the host context before the family-specific host mutation
// runs. A failed mutation keeps the registered record and surfaces as
// services.ErrHostMutation.
package create
