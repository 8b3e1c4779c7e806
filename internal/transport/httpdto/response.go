package httpdto

// MessageResponse is the uniform response body of the intake API:
// a short human-readable message, plus per-field errors when
// validation failed. Internal detail never leaks through it.
type MessageResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func NewMessageResponse(message string) MessageResponse {
	return MessageResponse{Message: message}
}

func NewValidationResponse(message string, errors map[string][]string) MessageResponse {
	return MessageResponse{Message: message, Errors: errors}
}
