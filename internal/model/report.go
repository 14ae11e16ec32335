package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RuleID names one of the fixed business-rule checks.
type RuleID string

// Rule identifiers, in evaluation order.
const (
	RuleTotalsBalance   RuleID = "TOTALS_BALANCE"
	RuleLineMath        RuleID = "LINE_MATH"
	RuleDateISO         RuleID = "DATE_ISO"
	RuleCurrencyAllowed RuleID = "CURRENCY_ALLOWED"
	RuleTRNPresent      RuleID = "TRN_PRESENT"
)

// CloseMatch pairs a canonical field with a similarly named source field.
type CloseMatch struct {
	Target     string  `json:"target"`
	Candidate  string  `json:"candidate"`
	Confidence float64 `json:"confidence"`
}

// Coverage classifies canonical fields against the uploaded field names.
type Coverage struct {
	Matched []string     `json:"matched"`
	Close   []CloseMatch `json:"close"`
	Missing []string     `json:"missing"`
}

// RuleFinding is the outcome of one business rule plus its evidence.
type RuleFinding struct {
	Rule        RuleID   `json:"rule"`
	OK          bool     `json:"ok"`
	ExampleLine *int     `json:"exampleLine,omitempty"`
	Expected    *float64 `json:"expected,omitempty"`
	Got         *float64 `json:"got,omitempty"`
	Value       string   `json:"value,omitempty"`
	Details     string   `json:"details,omitempty"`
}

// Scores holds the component and weighted overall readiness scores (0-100).
type Scores struct {
	Data     int `json:"data"`
	Coverage int `json:"coverage"`
	Rules    int `json:"rules"`
	Posture  int `json:"posture"`
	Overall  int `json:"overall"`
}

// Questionnaire holds the self-reported integration posture answers.
type Questionnaire struct {
	Webhooks   bool `json:"webhooks"`
	SandboxEnv bool `json:"sandbox_env"`
	Retries    bool `json:"retries"`
}

// ReportMeta carries upload context alongside the scores.
type ReportMeta struct {
	RowsParsed int    `json:"rowsParsed"`
	TotalRows  int    `json:"totalRows"`
	LinesTotal int    `json:"linesTotal"`
	Country    string `json:"country,omitempty"`
	ERP        string `json:"erp,omitempty"`
	DB         string `json:"db,omitempty"`
}

// Report is the assembled readiness assessment for one upload.
type Report struct {
	ReportID     string        `json:"reportId"`
	Scores       Scores        `json:"scores"`
	Readiness    string        `json:"readiness"`
	Coverage     Coverage      `json:"coverage"`
	RuleFindings []RuleFinding `json:"ruleFindings"`
	Gaps         []string      `json:"gaps"`
	Meta         ReportMeta    `json:"meta"`
}

// ReportSummary is the list view of a stored report.
type ReportSummary struct {
	ID           string    `json:"id"`
	UploadID     string    `json:"uploadId"`
	CreatedAt    time.Time `json:"createdAt"`
	OverallScore int       `json:"overallScore"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Upload is a parsed, row-capped dataset awaiting analysis.
type Upload struct {
	ID         string    `json:"id"`
	Country    string    `json:"country,omitempty"`
	ERP        string    `json:"erp,omitempty"`
	FileType   string    `json:"fileType"`
	RowsParsed int       `json:"rowsParsed"`
	TotalRows  int       `json:"totalRows"`
	Records    RecordSet `json:"records"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewUploadID returns a short upload identifier such as "u_1a2b3c4d".
func NewUploadID() string { return "u_" + shortID() }

// NewReportID returns a short report identifier such as "r_1a2b3c4d".
func NewReportID() string { return "r_" + shortID() }

func shortID() string {
	id, _, _ := strings.Cut(uuid.New().String(), "-")
	return id
}
