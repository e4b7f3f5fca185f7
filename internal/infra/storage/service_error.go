package storage

import (
	"encoding/xml"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// parseServiceError extracts the Code/Message pair from an S3-style XML
// error body. Bodies that are not well-formed XML are scanned for the tags.
func parseServiceError(body string) (code, message string, ok bool) {
	if !strings.Contains(body, "<Code>") || !strings.Contains(body, "</Code>") {
		return "", "", false
	}

	var svcErr oss.ServiceError
	if err := xml.Unmarshal([]byte(body), &svcErr); err == nil && svcErr.Code != "" {
		message = svcErr.Message
		if message == "" {
			message = body
		}
		return svcErr.Code, message, true
	}

	code = between(body, "<Code>", "</Code>")
	if code == "" {
		code = "Unknown"
	}
	message = between(body, "<Message>", "</Message>")
	if message == "" {
		message = body
	}
	return code, message, true
}

func between(s, open, close string) string {
	_, rest, found := strings.Cut(s, open)
	if !found {
		return ""
	}
	value, _, _ := strings.Cut(rest, close)
	return value
}
