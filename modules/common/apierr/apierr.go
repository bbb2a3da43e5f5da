package apierr

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind - coarse classification of a provider failure, used for retry and
// fallback decisions and for picking the user-facing message
type Kind string

const (
	RateLimited         Kind = "rate_limited"
	Unauthorized        Kind = "unauthorized"
	InsufficientCredits Kind = "insufficient_credits"
	ModelUnavailable    Kind = "model_unavailable"
	NetworkFailure      Kind = "network_failure"
	Timeout             Kind = "timeout"
	Unknown             Kind = "unknown"
)

// substring tables, matched case-insensitively against the raw error text.
// Order matters: the first matching kind wins.
var kindSubstrings = []struct {
	kind Kind
	subs []string
}{
	{RateLimited, []string{"429", "rate limit", "resource_exhausted", "quota", "too many requests"}},
	{Unauthorized, []string{"401", "403", "unauthorized", "permission denied", "api key not valid", "invalid api key", "invalid_api_key", "forbidden"}},
	{InsufficientCredits, []string{"402", "insufficient credit", "insufficient balance", "payment required", "billing"}},
	{ModelUnavailable, []string{"404", "model not found", "not_found", "model is not supported", "unknown model", "deprecated"}},
	{Timeout, []string{"deadline exceeded", "timeout", "timed out"}},
	{NetworkFailure, []string{"503", "502", "500", "unavailable", "overloaded", "connection refused", "connection reset", "no such host", "eof", "internal error", "internal server error"}},
}

// Classify maps a raw provider error onto the taxonomy. Typed errors
// (context, net.Error, googleapi.Error) are checked before the substring
// tables so wrapped errors classify correctly regardless of message text.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return RateLimited
		case gerr.Code == 401 || gerr.Code == 403:
			return Unauthorized
		case gerr.Code == 402:
			return InsufficientCredits
		case gerr.Code == 404:
			return ModelUnavailable
		case gerr.Code >= 500:
			return NetworkFailure
		}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		if nerr.Timeout() {
			return Timeout
		}
		return NetworkFailure
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range kindSubstrings {
		for _, sub := range entry.subs {
			if strings.Contains(msg, sub) {
				return entry.kind
			}
		}
	}
	return Unknown
}

// messages - user-facing text per kind, shown verbatim in the UI
var messages = map[Kind]string{
	RateLimited:         "The AI provider is rate limiting requests. Please wait a moment and try again.",
	Unauthorized:        "The API key was rejected. Check your provider credentials in settings.",
	InsufficientCredits: "Your provider account is out of credits. Top up your balance to continue.",
	ModelUnavailable:    "The selected model is unavailable. Pick a different model in settings.",
	NetworkFailure:      "The AI provider is temporarily unreachable. Please try again shortly.",
	Timeout:             "The request took too long and was aborted. Please try again.",
	Unknown:             "Something went wrong while talking to the AI provider. Please try again.",
}

// Message - user-facing message for a kind
func Message(kind Kind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[Unknown]
}

// MessageFor - classify and map in one step
func MessageFor(err error) string {
	return Message(Classify(err))
}

// Transient reports whether the failure is worth an automatic retry. Only
// service-side hiccups qualify; auth, credit and model errors never do, and
// rate limits get their own slower handling upstream.
func Transient(err error) bool {
	switch Classify(err) {
	case NetworkFailure, Timeout:
		return true
	default:
		return false
	}
}
