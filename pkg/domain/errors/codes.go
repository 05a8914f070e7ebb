package errors

// Code represents an error code
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"             // Unknown error occurred
	CodeConfiguration     Code = "CONFIGURATION_ERROR" // A required setting is unset or invalid
	CodeComponentNotFound Code = "COMPONENT_NOT_FOUND" // No adapted component matches the request
	CodeToolInvocation    Code = "TOOL_INVOCATION"     // An external tool exited non-zero
	CodeManifest          Code = "MANIFEST_ERROR"      // Product or subsystem declaration missing or malformed
	CodeUserAbort         Code = "USER_ABORT"          // Interrupted by the user
	CodeIoError           Code = "IO_ERROR"            // Input/output operation failed
	CodeInvalidParameter  Code = "INVALID_PARAMETER"   // Invalid parameter provided
	CodeNotFound          Code = "NOT_FOUND"           // Not found
)
