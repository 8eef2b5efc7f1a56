package engine

import (
	"io"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/parsers"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
	"golang-statement-engine/pkg/logger"
)

// Engine parses statement streams against an immutable profile tree.
// It holds no per-invocation state and no caches; a single Engine is
// safe for concurrent use.
type Engine struct {
	profiles *profile.Tree
	logger   logger.Logger
}

// ParseRequest identifies one parse invocation.
type ParseRequest struct {
	// Filename drives extension-based format detection.
	Filename string
	// ContentType is the optional MIME hint, consulted when the
	// extension is unhelpful.
	ContentType string
	// ParserKey names the bank profile.
	ParserKey string
	// AccountNoOverride is an opaque pass-through for downstream
	// collaborators; the engine never interprets it.
	AccountNoOverride string
}

// Result carries the parsed rows plus the invocation facts callers
// usually report on.
type Result struct {
	Rows              []models.ParsedRow
	Format            models.FormatKind
	ParserKey         string
	AccountNoOverride string
}

// New creates an engine over a loaded profile tree.
func New(tree *profile.Tree) *Engine {
	return &Engine{
		profiles: tree,
		logger:   logger.GetGlobalLogger().WithComponent("engine"),
	}
}

// Parse detects the format, resolves the bank's sub-profile and runs
// the format pipeline, materializing every row eagerly in document
// order. Any stage error aborts the invocation; partial results are
// never returned.
func (e *Engine) Parse(r io.Reader, req ParseRequest) (*Result, error) {
	kind, err := DetectFormat(req.Filename, req.ContentType)
	if err != nil {
		return nil, err
	}

	fp, err := e.profiles.Resolve(req.ParserKey, kind)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(logger.Fields{
		"parser_key": fp.ParserKey,
		"format":     string(kind),
		"filename":   req.Filename,
	})
	log.Debug("Starting parse invocation")

	var rows []models.ParsedRow
	switch kind {
	case models.FormatCSV:
		rows, err = parsers.ParseDelimited(r, fp)
	case models.FormatXLS:
		rows, err = parsers.ParseXLS(r, fp)
	case models.FormatXLSX:
		rows, err = parsers.ParseXLSX(r, fp)
	case models.FormatPDF:
		rows, err = parsers.ParsePDF(r, fp)
	default:
		return nil, errors.InternalError("selecting format pipeline", nil).
			WithContext("format", string(kind))
	}
	if err != nil {
		log.WithError(err).Error("Parse invocation failed")
		return nil, err
	}

	log.WithField("rows", len(rows)).Info("Parse invocation complete")
	return &Result{
		Rows:              rows,
		Format:            kind,
		ParserKey:         fp.ParserKey,
		AccountNoOverride: req.AccountNoOverride,
	}, nil
}
