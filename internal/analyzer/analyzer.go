// Package analyzer assembles a readiness report from a parsed upload by
// running field mapping and rule validation side by side, then scoring.
package analyzer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/readiness-cli/internal/mapper"
	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/rules"
	"github.com/sells-group/readiness-cli/internal/schema"
	"github.com/sells-group/readiness-cli/internal/scoring"
)

// Input is one analysis request.
type Input struct {
	Records       model.RecordSet
	RowsParsed    int
	TotalRows     int
	Questionnaire model.Questionnaire
	Country       string
	ERP           string
}

// FromUpload builds an Input from a stored upload.
func FromUpload(u *model.Upload, q model.Questionnaire) Input {
	return Input{
		Records:       u.Records,
		RowsParsed:    u.RowsParsed,
		TotalRows:     u.TotalRows,
		Questionnaire: q,
		Country:       u.Country,
		ERP:           u.ERP,
	}
}

// Analyzer produces reports. It is safe for concurrent use.
type Analyzer struct {
	mapper    *mapper.Mapper
	validator *rules.Validator
	engine    *scoring.Engine
	db        string
	newID     func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDB records the storage driver name in report metadata.
func WithDB(name string) Option {
	return func(a *Analyzer) { a.db = name }
}

// WithIDFunc replaces the report id generator.
func WithIDFunc(fn func() string) Option {
	return func(a *Analyzer) { a.newID = fn }
}

// New creates an Analyzer for the given schema.
func New(s *schema.Schema, opts ...Option) *Analyzer {
	a := &Analyzer{
		mapper:    mapper.New(s),
		validator: rules.New(s),
		engine:    scoring.New(s),
		newID:     model.NewReportID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze maps, validates and scores in. The context is checked before and
// after the computation; the computation itself does not block.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze")
	}
	start := time.Now()

	var (
		cov      model.Coverage
		findings []model.RuleFinding
		gaps     []string
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		cov = a.mapper.Map(in.Records)
		return nil
	})
	g.Go(func() error {
		findings, gaps = a.validator.Validate(in.Records)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze")
	}

	scores := a.engine.Score(in.RowsParsed, in.TotalRows, cov, findings, in.Questionnaire)

	report := &model.Report{
		ReportID:     a.newID(),
		Scores:       scores,
		Readiness:    scoring.ReadinessLabel(scores.Overall),
		Coverage:     cov,
		RuleFindings: findings,
		Gaps:         gaps,
		Meta: model.ReportMeta{
			RowsParsed: in.RowsParsed,
			TotalRows:  in.TotalRows,
			LinesTotal: LinesTotal(in.Records),
			Country:    in.Country,
			ERP:        in.ERP,
			DB:         a.db,
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze")
	}

	zap.L().Info("analyzer: report ready",
		zap.String("report_id", report.ReportID),
		zap.Int("rows", in.RowsParsed),
		zap.Int("overall", scores.Overall),
		zap.String("readiness", report.Readiness),
		zap.Int("gaps", len(gaps)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// LinesTotal counts line items: the length of each row's lines array, or
// one for a row without one.
func LinesTotal(records model.RecordSet) int {
	total := 0
	for _, row := range records {
		if v, ok := row.Get("lines"); ok {
			if items, ok := v.AsArray(); ok {
				total += len(items)
				continue
			}
		}
		total++
	}
	return total
}
