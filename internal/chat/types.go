// Package chat defines the question and answer messages exchanged with the
// answering service over Kafka, and the HTTP shapes of the chatbot endpoint.
package chat

// QuestionEvent is published to the questions topic. CorrelationID is empty
// in first-answer mode, which keeps the message shape {"query": ...}.
type QuestionEvent struct {
	Query         string `json:"query"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AnswerEvent is read from the answers topic. The answering service echoes
// the question's CorrelationID.
type AnswerEvent struct {
	Answer        string `json:"answer"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AskRequest is the body of POST /chatbot/.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse is returned by POST /chatbot/.
type AskResponse struct {
	Answer string `json:"answer"`
}
