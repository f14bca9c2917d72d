package constants

// Error bodies returned to clients. Clients match on these so don't reword them.
const (
	ErrMsgMissingFields    = "Missing model or prompt/message field"
	ErrMsgNoJSONBody       = "No JSON body"
	ErrMsgBadRequest       = "Malformed request"
	ErrMsgMethodNotAllowed = "Method not allowed"
	ErrMsgTooManyRequests  = "Service Unavailable (too many requests)"
	ErrMsgRateLimited      = "Rate limit exceeded"
	ErrMsgPayloadTooLarge  = "Payload too large"
	ErrMsgResponseTooLarge = "Response too large for gateway buffer"
	ErrMsgNotInitialised   = "Backend not initialized"
	ErrMsgConnectFailed    = "Failed to connect to %s"
	ErrMsgInvalidResponse  = "Invalid %s response"
)
