// Package translate implements the incremental localization sync engine and
// the translation provider contract it drives.
//
// The engine walks source localization files entry by entry, decides per
// target language whether each entry needs a provider call (new or changed
// source text), a verbatim copy (tag-only lines, no-translate directives), or
// nothing at all (unchanged since the last run, or locked in the target), and
// merges the results into the per-language output files. Fingerprints of
// translated source text are tracked in the lock file so a second run over
// unchanged sources performs zero provider calls.
package translate

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors a Provider can report. The engine aborts the remaining run
// on ErrAuth (further calls would uniformly fail) and treats everything else
// as retryable on the next run.
var (
	ErrAuth                = errors.New("authentication failed")
	ErrQuota               = errors.New("translation quota exhausted")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ProviderError describes a failed provider call.
type ProviderError struct {
	// Provider is the provider ID.
	Provider string
	// Status is the HTTP status code, 0 for transport errors.
	Status int
	// Message is the provider's error text, possibly truncated.
	Message string
	// Err is the sentinel category, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider converts text between two localization languages. Languages are
// passed as localization folder names ("english", "braz_por"); each provider
// maps them to its own codes.
//
// The text a provider receives is already masked: game-syntax tokens are
// replaced by [VAR_n] sentinels that must survive translation.
type Provider interface {
	ID() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
