// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docset infers which regulatory process a batch of documents is
// attempting and reports the mandatory documents that are present or missing.
package docset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pdiddy/compliance-review/pkg/types"
)

// Process lists the documents a regulatory process requires.
type Process struct {
	Type     types.ProcessType `json:"type" yaml:"type"`
	Required []string          `json:"required" yaml:"required"`
	Optional []string          `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// TypeName maps a type tag to a canonical required-document name. Tags may
// name documents the classifier does not produce yet (license_application,
// business_plan).
type TypeName struct {
	Tag  types.DocType `json:"tag" yaml:"tag"`
	Name string        `json:"name" yaml:"name"`
}

// Requirements is the immutable configuration of a Checker.
type Requirements struct {
	// Processes are counted in order when identifying a batch.
	Processes []Process `json:"processes" yaml:"processes"`

	// Names is searched in order by the fuzzy fallback.
	Names []TypeName `json:"names" yaml:"names"`
}

// DefaultRequirements returns the ADGM document checklists.
func DefaultRequirements() Requirements {
	return Requirements{
		Processes: []Process{
			{
				Type: types.ProcessIncorporation,
				Required: []string{
					"Articles of Association",
					"Board Resolution",
					"Shareholder Resolution",
					"Incorporation Application Form",
					"Register of Members and Directors",
				},
				Optional: []string{"UBO Declaration Form", "Memorandum of Association", "Power of Attorney"},
			},
			{
				Type: types.ProcessLicensing,
				Required: []string{
					"License Application Form",
					"Business Plan",
					"Compliance Manual",
					"Board Resolution for License",
					"Financial Projections",
				},
				Optional: []string{"Reference Letters", "CV of Key Personnel"},
			},
			{
				Type:     types.ProcessEmployment,
				Required: []string{"Employment Contract", "Job Description", "Salary Certificate"},
				Optional: []string{"Offer Letter", "Non-Disclosure Agreement"},
			},
		},
		Names: []TypeName{
			{"articles_of_association", "Articles of Association"},
			{"board_resolution", "Board Resolution"},
			{"shareholder_resolution", "Shareholder Resolution"},
			{"incorporation_application", "Incorporation Application Form"},
			{"register", "Register of Members and Directors"},
			{"memorandum", "Memorandum of Association"},
			{"ubo_declaration", "UBO Declaration Form"},
			{"employment_contract", "Employment Contract"},
			{"license_application", "License Application Form"},
			{"business_plan", "Business Plan"},
			{"compliance_manual", "Compliance Manual"},
			{"commercial_agreement", "Commercial Agreement"},
			{"general_document", "General Document"},
		},
	}
}

// Checker evaluates document sets against Requirements. It is safe for
// concurrent use.
type Checker struct {
	req Requirements
}

// New copies req into a Checker.
func New(req Requirements) (*Checker, error) {
	var cp Requirements
	seen := make(map[types.ProcessType]bool)
	for _, p := range req.Processes {
		if p.Type == "" || p.Type == types.ProcessUnknown {
			return nil, fmt.Errorf("process %q: invalid type", p.Type)
		}
		if seen[p.Type] {
			return nil, fmt.Errorf("process %q: listed twice", p.Type)
		}
		if len(p.Required) == 0 {
			return nil, fmt.Errorf("process %q: no required documents", p.Type)
		}
		seen[p.Type] = true
		cp.Processes = append(cp.Processes, Process{
			Type:     p.Type,
			Required: slices.Clone(p.Required),
			Optional: slices.Clone(p.Optional),
		})
	}
	if len(cp.Processes) == 0 {
		return nil, fmt.Errorf("no processes configured")
	}
	cp.Names = slices.Clone(req.Names)
	return &Checker{req: cp}, nil
}

// Default returns a Checker over DefaultRequirements.
func Default() *Checker {
	c, err := New(DefaultRequirements())
	if err != nil {
		panic(fmt.Sprintf("docset: default requirements invalid: %v", err))
	}
	return c
}

// Process returns the requirements of pt.
func (c *Checker) Process(pt types.ProcessType) (Process, bool) {
	for _, p := range c.req.Processes {
		if p.Type == pt {
			return p, true
		}
	}
	return Process{}, false
}

// IdentifyProcess picks the process a batch of classified types is
// attempting. Any incorporation match wins; otherwise licensing wins over
// employment when it has strictly more matches; otherwise employment wins
// when it has any. With no matches at all it returns company_incorporation,
// the most common process.
func (c *Checker) IdentifyProcess(docTypes []types.DocType) types.ProcessType {
	var names []string
	for _, t := range docTypes {
		if name, ok := c.fuzzyName(t); ok {
			names = append(names, name)
		}
	}

	count := func(pt types.ProcessType) int {
		p, ok := c.Process(pt)
		if !ok {
			return 0
		}
		n := 0
		for _, name := range names {
			if slices.Contains(p.Required, name) {
				n++
			}
		}
		return n
	}

	inc := count(types.ProcessIncorporation)
	lic := count(types.ProcessLicensing)
	emp := count(types.ProcessEmployment)

	switch {
	case inc > 0:
		return types.ProcessIncorporation
	case lic > emp:
		return types.ProcessLicensing
	case emp > 0:
		return types.ProcessEmployment
	default:
		return types.ProcessIncorporation
	}
}

// CheckMissing splits the required documents of pt into present and missing.
// When docTypes is non-empty only the classified types are consulted;
// filenames are used only when no types are available. An unknown process
// yields ProcessUnknown with no requirements.
func (c *Checker) CheckMissing(uploaded []string, pt types.ProcessType, docTypes []types.DocType) types.DocumentSetCheck {
	p, ok := c.Process(pt)
	if !ok {
		return types.DocumentSetCheck{
			Process:       types.ProcessUnknown,
			Present:       []string{},
			Missing:       []string{},
			UploadedCount: len(uploaded),
		}
	}

	check := types.DocumentSetCheck{
		Process:       pt,
		RequiredCount: len(p.Required),
		Present:       []string{},
		Missing:       []string{},
		UploadedCount: len(uploaded),
	}

	var present func(required string) bool
	if len(docTypes) > 0 {
		var names []string
		for _, t := range docTypes {
			if name, ok := c.exactName(t); ok {
				names = append(names, name)
			}
		}
		present = func(required string) bool { return slices.Contains(names, required) }
	} else {
		lowered := make([]string, len(uploaded))
		for i, u := range uploaded {
			lowered[i] = strings.ToLower(u)
		}
		present = func(required string) bool { return filenameMatch(required, lowered) }
	}

	for _, required := range p.Required {
		if present(required) {
			check.Present = append(check.Present, required)
		} else {
			check.Missing = append(check.Missing, required)
		}
	}
	return check
}

func (c *Checker) exactName(tag types.DocType) (string, bool) {
	for _, tn := range c.req.Names {
		if tn.Tag == tag {
			return tn.Name, true
		}
	}
	return "", false
}

// fuzzyName tries an exact tag first, then the first tag that is a substring
// of t or contains it.
func (c *Checker) fuzzyName(t types.DocType) (string, bool) {
	if name, ok := c.exactName(t); ok {
		return name, true
	}
	lt := strings.ToLower(string(t))
	if lt == "" {
		return "", false
	}
	for _, tn := range c.req.Names {
		tag := string(tn.Tag)
		if strings.Contains(lt, tag) || strings.Contains(tag, lt) {
			return tn.Name, true
		}
	}
	return "", false
}

// filenameMatch reports whether some filename contains at least half of the
// significant (longer than three characters) words of required. The 50%
// threshold is a heuristic.
func filenameMatch(required string, filenames []string) bool {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(required)) {
		if len(w) > 3 {
			keywords = append(keywords, w)
		}
	}
	if len(keywords) == 0 {
		return false
	}
	for _, f := range filenames {
		matched := 0
		for _, k := range keywords {
			if strings.Contains(f, k) {
				matched++
			}
		}
		if 2*matched >= len(keywords) {
			return true
		}
	}
	return false
}
