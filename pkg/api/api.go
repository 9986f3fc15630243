// Package api holds the static endpoint table of the math AI backend and the
// JSON payloads exchanged with it.
package api

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the origin every endpoint path is prefixed with when no
// base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// Endpoint paths.
const (
	Generate         = "/v1/chat/completions"
	RelatedQuestions = "/v1/related_questions"
	ReferenceFiles   = "/v1/reference_files"
	Auth             = "/auth"
	Register         = "/register"
	APIKeys          = "/api-keys"
	Conversations    = "/conversations"
	SaveQuestion     = "/v1/questions"
	Download         = "/api/download"
	OCR              = "/v1/ocr"
)

// endpoints maps normalized symbolic names to paths.
var endpoints = map[string]string{
	"generate":         Generate,
	"completions":      Generate,
	"relatedquestions": RelatedQuestions,
	"referencefiles":   ReferenceFiles,
	"auth":             Auth,
	"register":         Register,
	"apikeys":          APIKeys,
	"conversations":    Conversations,
	"savequestion":     SaveQuestion,
	"download":         Download,
	"ocr":              OCR,
}

// unauthenticatedPrefixes never receive an Authorization header.
var unauthenticatedPrefixes = []string{Auth, Register}

// Lookup resolves a symbolic endpoint name ("related_questions",
// "RELATED_QUESTIONS", "related-questions") to its literal path.
func Lookup(name string) (string, error) {
	key := strings.ToLower(name)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)

	path, ok := endpoints[key]
	if !ok {
		return "", fmt.Errorf("unknown endpoint: %q", name)
	}
	return path, nil
}

// IsUnauthenticated reports whether requests to path must go out without
// bearer credentials (login and registration).
func IsUnauthenticated(path string) bool {
	for _, prefix := range unauthenticatedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
