package model

import "time"

// RunStatus represents the current state of a discovery run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams captures the inputs of a run for the ledger.
type RunParams struct {
	NAFCodes       []string `json:"naf_codes"`
	MinEmployees   int      `json:"min_employees"`
	MaxEmployees   int      `json:"max_employees"`
	ExcludeOver    int      `json:"exclude_over"`
	PageSize       int      `json:"page_size"`
	MaxPages       int      `json:"max_pages"`
	WebScan        bool     `json:"web_scan"`
	StrictInsee    bool     `json:"strict_insee"`
	IncludeZero    bool     `json:"include_zero"`
	OutputPath     string   `json:"output_path,omitempty"`
	RelevantOutput string   `json:"relevant_output,omitempty"`
}

// RunStats summarizes what a run produced.
type RunStats struct {
	RawRecords      int               `json:"raw_records"`
	UniqueSIREN     int               `json:"unique_siren"`
	SkippedZero     int               `json:"skipped_zero"`
	SkippedOversize int               `json:"skipped_oversize"`
	Failed          int               `json:"failed"`
	Processed       int               `json:"processed"`
	Qualifying      int               `json:"qualifying"`
	SourceByCode    map[string]string `json:"source_by_code,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Run is one execution of the pipeline as recorded in the ledger.
type Run struct {
	ID        string    `json:"id"`
	Params    RunParams `json:"params"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CachedDomain is a previously resolved website for a SIREN.
type CachedDomain struct {
	SIREN      string       `json:"siren"`
	Domain     string       `json:"domain"`
	Source     DomainSource `json:"source"`
	ResolvedAt time.Time    `json:"resolved_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}
