package assistant

import "github.com/dhruvj7/careflow/internal/models"

// ChatResult bundles the decoded response with the raw payload. The raw bytes
// are returned to the page untouched so the chat UI can render fields the
// orchestrator does not model.
type ChatResult struct {
	Response models.ChatResponse
	Raw      []byte
}
