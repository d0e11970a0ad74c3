// Package tagmask protects inline game-syntax tokens during translation.
//
// Localization values embed four token families the translation provider
// must never see or alter:
//
//	[GetName]      bracketed scripting calls
//	$PLAYER$       dollar-delimited variables
//	@icon!         at-delimited icon references
//	#bold ... #!   hash-delimited formatting directives
//
// Mask substitutes each token with a positional [VAR_n] sentinel before the
// provider call; Unmask restores them afterwards. Validate reports tokens the
// provider dropped, and Cleanup repairs common formatting damage in provider
// output.
package tagmask

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketPat = regexp.MustCompile(`\[.*?\]`)
	dollarPat  = regexp.MustCompile(`\$.*?\$`)
	atPat      = regexp.MustCompile(`@[a-zA-Z0-9_]+!?`)
	hashPat    = regexp.MustCompile(`#[a-zA-Z0-9_]+|#!`)

	// Providers sometimes return sentinels with the brackets mangled or
	// padded ("[ VAR_0 ]", "VAR_0"), so Unmask matches loosely. Inner
	// padding is only consumed when an opening bracket is present, so a
	// bare sentinel keeps the space before it.
	sentinelLoosePat = regexp.MustCompile(`\[\s*VAR_(\d+)\s*\]?|\bVAR_(\d+)\]?`)
	sentinelPat      = regexp.MustCompile(`\[VAR_\d+\]`)

	punctPat = regexp.MustCompile(`[ \t.,!?:;]`)

	spaceBeforePunctPat = regexp.MustCompile(`\s+([,.])`)
	multiSpacePat       = regexp.MustCompile(` {2,}`)
)

// Mask replaces every recognized token with a [VAR_n] sentinel and returns
// the masked text together with the replaced tokens in sentinel order.
// The bracket family is masked first so that the sentinels it introduces
// are not re-matched by the later passes.
func Mask(text string) (string, []string) {
	var placeholders []string
	replace := func(match string) string {
		idx := len(placeholders)
		placeholders = append(placeholders, match)
		return "[VAR_" + strconv.Itoa(idx) + "]"
	}

	text = bracketPat.ReplaceAllStringFunc(text, replace)
	text = dollarPat.ReplaceAllStringFunc(text, replace)
	text = atPat.ReplaceAllStringFunc(text, replace)
	text = hashPat.ReplaceAllStringFunc(text, replace)

	return text, placeholders
}

// Unmask restores sentinels to their original tokens by index.
// Sentinels with an out-of-range index are left as-is.
func Unmask(text string, placeholders []string) string {
	return sentinelLoosePat.ReplaceAllStringFunc(text, func(match string) string {
		m := sentinelLoosePat.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sentinelIndex(m))
		if err != nil || idx < 0 || idx >= len(placeholders) {
			return match
		}
		return placeholders[idx]
	})
}

// sentinelIndex returns the digits captured by whichever alternative of
// sentinelLoosePat matched.
func sentinelIndex(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Validate returns the original tokens whose sentinels are missing from the
// provider output. An empty result means every token survived.
func Validate(text string, placeholders []string) []string {
	found := make(map[int]bool)
	for _, m := range sentinelLoosePat.FindAllStringSubmatch(text, -1) {
		if idx, err := strconv.Atoi(sentinelIndex(m)); err == nil {
			found[idx] = true
		}
	}

	var missing []string
	for i, p := range placeholders {
		if !found[i] {
			missing = append(missing, p)
		}
	}
	return missing
}

// Cleanup repairs common provider formatting damage: space before
// punctuation, doubled spaces, and doubled brackets around restored tokens.
func Cleanup(text string) string {
	text = spaceBeforePunctPat.ReplaceAllString(text, "$1")
	text = multiSpacePat.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "[[", "[")
	text = strings.ReplaceAll(text, "]]", "]")
	return strings.TrimSpace(text)
}

// OnlyPlaceholders reports whether masked text contains nothing worth
// translating: only sentinels, punctuation, and whitespace.
func OnlyPlaceholders(masked string) bool {
	if strings.TrimSpace(masked) == "" {
		return true
	}
	stripped := sentinelPat.ReplaceAllString(masked, "")
	stripped = punctPat.ReplaceAllString(stripped, "")
	return stripped == ""
}
