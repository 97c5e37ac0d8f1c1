package server

import (
	"errors"
	"net/http"

	"github.com/polychat/polychat-go/internal/guardrails"
	"github.com/polychat/polychat-go/internal/provider"
	"github.com/polychat/polychat-go/internal/routing"
)

const (
	codeInvalidRequest      = "invalid_request"
	codeUnknownProvider     = "unknown_provider"
	codeNotConfigured       = "provider_not_configured"
	codeUpstreamError       = "upstream_error"
	codeMalformedUpstream   = "malformed_upstream_response"
	codeUpstreamTimeout     = "upstream_timeout"
	codeUpstreamUnreachable = "upstream_unreachable"
	codeInternal            = "internal_error"
)

type errorBody struct {
	Detail         string `json:"detail"`
	Code           string `json:"code"`
	Provider       string `json:"provider,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// classify maps a dispatch failure to an HTTP status. Client mistakes are 4xx;
// everything that went wrong upstream or in configuration is 5xx.
func classify(err error) (int, errorBody) {
	var (
		ue *routing.UnknownProviderError
		ve *guardrails.ValidationError
		ce *provider.ConfigurationError
		pe *provider.ProviderError
		me *provider.MalformedResponseError
		te *provider.TransportError
	)
	switch {
	case errors.As(err, &ue):
		return http.StatusBadRequest, errorBody{Detail: "Unknown provider", Code: codeUnknownProvider}
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Detail: ve.Error(), Code: codeInvalidRequest}
	case errors.As(err, &ce):
		return http.StatusInternalServerError, errorBody{Detail: ce.Error(), Code: codeNotConfigured}
	case errors.As(err, &pe):
		return http.StatusBadGateway, errorBody{Detail: pe.Error(), Code: codeUpstreamError, UpstreamStatus: pe.StatusCode}
	case errors.As(err, &me):
		return http.StatusBadGateway, errorBody{Detail: me.Error(), Code: codeMalformedUpstream}
	case errors.As(err, &te) && te.Timeout():
		return http.StatusGatewayTimeout, errorBody{Detail: te.Error(), Code: codeUpstreamTimeout}
	case errors.As(err, &te):
		return http.StatusBadGateway, errorBody{Detail: te.Error(), Code: codeUpstreamUnreachable}
	default:
		return http.StatusInternalServerError, errorBody{Detail: "internal error", Code: codeInternal}
	}
}
