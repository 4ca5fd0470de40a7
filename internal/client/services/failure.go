package services

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
)

// Texts shown in place of a reply when the chat API call fails.
const (
	RateLimitedText = "API rate limit exceeded. Please wait a moment and try again."
	UnreachableText = "Unable to connect to the server. Please check if the backend is running on port 5000."
	GenericFailText = "Sorry, I encountered an error. Please try again."
	serverErrPrefix = "Server error: "
)

// DescribeFailure picks the assistant text for a failed send.
func DescribeFailure(err error) string {
	var he *client.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.Status == http.StatusTooManyRequests:
			return RateLimitedText
		case he.Status == http.StatusInternalServerError && he.Message != "":
			return serverErrPrefix + he.Message
		case he.ErrorText != "":
			return he.ErrorText
		}
		return GenericFailText
	}
	if errors.Is(err, client.ErrUnavailable) {
		return UnreachableText
	}
	return GenericFailText
}
