package adapter

import "context"

// TranslateRequest is a single provider call. SourceLang may be empty,
// in which case the provider detects the source itself. Provider is the
// session's preferred backend; fan-out implementations try it first and
// single backends ignore it.
type TranslateRequest struct {
	Text       string
	SourceLang string
	TargetLang string
	Provider   string
}

// TranslateResult carries the translated text plus which provider
// produced it and which source language was actually used.
type TranslateResult struct {
	Text       string
	Provider   string
	SourceLang string
	Detected   bool // SourceLang was inferred rather than requested
}

// TranslationProvider is the port every translation backend implements.
// Implementations map provider-specific failures onto the domain error
// taxonomy (ErrProviderUnavailable, ErrProviderRateLimited, ...) so the
// dispatcher can classify without knowing the backend.
type TranslationProvider interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (TranslateResult, error)
}
