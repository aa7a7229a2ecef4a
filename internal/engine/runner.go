// Package engine runs the lookup pipeline: parse, query, select, format.
package engine

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/arcgis"
	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/logging"
	"github.com/cardinal-lookup/internal/match"
	"github.com/cardinal-lookup/internal/normalize"
	"github.com/cardinal-lookup/internal/parser"
)

// Lookup queries the parcel service for one tuple.
type Lookup interface {
	Query(ctx context.Context, q parser.QueryTuple, strict bool) ([]arcgis.Attributes, error)
}

// Progress is reported once per tuple, after its query has been handled.
type Progress struct {
	Index   int               `json:"index"`
	Total   int               `json:"total"`
	Percent int               `json:"percent"`
	Tuple   parser.QueryTuple `json:"tuple"`
}

// Options control a single run.
type Options struct {
	Strict     bool
	OnProgress func(Progress)
}

// Stats counts what happened to each tuple of a run.
type Stats struct {
	Queries  int `json:"queries"`
	Matched  int `json:"matched"`
	NoMatch  int `json:"no_match"`
	Excluded int `json:"excluded"`
	Failed   int `json:"failed"`
}

// Result is the output of a completed run.
type Result struct {
	Records []batch.Record `json:"records"`
	Stats   Stats          `json:"stats"`
}

// Runner executes lookups strictly one after another, in input order.
type Runner struct {
	parser     parser.Parser
	lookup     Lookup
	classifier *normalize.Classifier
	log        logrus.FieldLogger
}

// NewRunner wires a runner. A nil parser means the token parser, a nil
// logger discards.
func NewRunner(p parser.Parser, lookup Lookup, log logrus.FieldLogger) *Runner {
	if p == nil {
		p = parser.Tokens{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		parser:     p,
		lookup:     lookup,
		classifier: normalize.DefaultClassifier(),
		log:        log,
	}
}

// WithClassifier swaps the owner rule tables.
func (r *Runner) WithClassifier(c *normalize.Classifier) *Runner {
	r.classifier = c
	return r
}

// Parse exposes the runner's parser so callers can size progress displays.
func (r *Runner) Parse(text string) []parser.QueryTuple {
	return r.parser.Parse(text)
}

// Run parses text and resolves every tuple. Lookup failures are logged and
// skipped. If ctx is cancelled the partial result is discarded and ctx's
// error returned.
func (r *Runner) Run(ctx context.Context, text string, opts Options) (*Result, error) {
	defer logging.Timing(r.log, "lookup run")()

	tuples := r.parser.Parse(text)
	res := &Result{Records: []batch.Record{}}
	total := len(tuples)

	for i, q := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := r.log.WithFields(logrus.Fields{"house_number": q.HouseNumber, "street": q.StreetName})
		res.Stats.Queries++

		candidates, err := r.lookup.Query(ctx, q, opts.Strict)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			res.Stats.Failed++
			var le *arcgis.LookupError
			if errors.As(err, &le) {
				log.WithError(le.Err).Warn("lookup failed")
			} else {
				log.WithError(err).Warn("lookup failed")
			}
		default:
			r.collect(log, res, candidates, opts.Strict)
		}

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Index:   i,
				Total:   total,
				Percent: percent(i+1, total),
				Tuple:   q,
			})
		}
	}

	r.log.WithFields(logrus.Fields{
		"queries":  res.Stats.Queries,
		"matched":  res.Stats.Matched,
		"excluded": res.Stats.Excluded,
		"failed":   res.Stats.Failed,
	}).Info("lookup run complete")
	return res, nil
}

func (r *Runner) collect(log logrus.FieldLogger, res *Result, candidates []arcgis.Attributes, strict bool) {
	chosen, decision := match.Decide(candidates, strict)
	if decision != match.Accept {
		res.Stats.NoMatch++
		log.WithField("decision", decision).Debug("no record selected")
		return
	}

	rec, ok := r.classifier.Format(chosen)
	if !ok {
		res.Stats.Excluded++
		rule, _ := r.classifier.Excluded(string(chosen.OwnerName))
		log.WithField("rule", rule.Name).Debug("owner excluded")
		return
	}

	res.Stats.Matched++
	res.Records = append(res.Records, rec)
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
