package gateway

// Error codes returned in the {success: false, error: ...} envelope,
// matching spec.md §4.3's "Fails with" list.
const (
	errNotAuthenticated = "NotAuthenticated"
	errNotOwner         = "NotOwner"
	errDuplicateName    = "DuplicateName"
	errInvalidPackage   = "InvalidPackage"
	errNotFound         = "NotFound"
	errInternalError    = "InternalError"
	errInvalidRequest   = "InvalidRequest"
)
