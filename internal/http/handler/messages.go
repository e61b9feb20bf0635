package handler

const (
	msgEndpointNotFoundFmt     = "Endpoint not found: %s"
	msgMethodNotAllowed        = "Method not allowed. Use POST instead."
	msgContentTypeJSONRequired = "Endpoint only consumes 'application/json'"
	msgMissingPropertyFmt      = "Missing '%s' property."
	msgPropertyTypeFmt         = "'%s' property must be %s!"

	jsonKeyData = "data"
)
