package profile

import (
	"strings"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/pkg/errors"
)

// Resolve locates the enabled sub-profile for a parser key and format
// kind. A missing or disabled bank reports UnknownParserKey; a missing
// or disabled format sub-profile reports FormatNotConfigured.
func (t *Tree) Resolve(parserKey string, kind models.FormatKind) (*FormatProfile, error) {
	bank, ok := t.Bank(parserKey)
	if !ok || !bank.Enabled {
		return nil, errors.UnknownParserKey(strings.TrimSpace(parserKey))
	}

	fp := bank.Format(kind)
	if fp == nil || !fp.Enabled {
		return nil, errors.FormatNotConfigured(bank.Key, string(kind))
	}

	return fp, nil
}
