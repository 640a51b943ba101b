package workos

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goliatone/go-errors"
)

func errConfig(msg string) error {
	return errors.New(msg, errors.CategoryBadInput).WithCode(errors.CodeBadRequest)
}

func errSession(msg string, cause error) error {
	if cause == nil {
		return errors.New(msg, errors.CategoryAuth).WithCode(errors.CodeUnauthorized)
	}
	return errors.Wrap(cause, errors.CategoryAuth, msg).WithCode(errors.CodeUnauthorized)
}

func errTransport(method, path string, cause error) error {
	return errors.Wrap(cause, errors.CategoryInternal, fmt.Sprintf("workos %s %s failed", method, path)).
		WithCode(errors.CodeInternal)
}

type apiErrorBody struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b apiErrorBody) text() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.ErrorDescription != "":
		return b.ErrorDescription
	case b.Error != "":
		return b.Error
	case b.Code != "":
		return b.Code
	}
	return "unexpected provider response"
}

// apiError normalizes a non-2xx provider response into a rich error carrying
// the provider status. Authentication rejections keep their 4xx status so the
// adapter boundary reports them as-is; everything else collapses to a 500.
func apiError(method, path string, status int, raw []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)

	meta := map[string]any{
		"method": method,
		"path":   path,
		"status": status,
	}
	if body.Code != "" {
		meta["provider_code"] = body.Code
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.New(body.text(), errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(meta)
	case status == http.StatusNotFound:
		return errors.New(body.text(), errors.CategoryNotFound).
			WithCode(errors.CodeNotFound).
			WithMetadata(meta)
	case status >= 400 && status < 500:
		return errors.New(body.text(), errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(meta)
	}
	return errors.New(body.text(), errors.CategoryInternal).
		WithCode(errors.CodeInternal).
		WithMetadata(meta)
}
