// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"bytes"
	"text/template"
)

const systemPrompt = "You are an ADGM legal compliance expert."

// expandPromptTmpl asks for related search terms for a retrieval query.
var expandPromptTmpl = template.Must(template.New("expand").Parse(`Given this legal query about ADGM compliance, provide 3-5 related search terms or synonyms.
Query: {{.Query}}

Return only the expanded terms separated by commas, nothing else.`))

// reasonPromptTmpl asks for a step-by-step compliance judgement grounded on
// retrieved regulation passages.
var reasonPromptTmpl = template.Must(template.New("reason").Parse(`Use chain-of-thought reasoning to analyze this compliance question.

Context from ADGM Regulations:
{{.Context}}

Question: {{.Query}}

Think through this step-by-step:
1. Identify the specific ADGM regulation or requirement being questioned
2. Check if the document/clause complies with identified regulations
3. List any specific violations or issues
4. Provide actionable recommendations

Respond with a JSON object and nothing else:
{
    "reasoning_steps": ["step1", "step2"],
    "applicable_regulations": ["regulation1", "regulation2"],
    "compliance_status": "compliant" | "non-compliant" | "review_required",
    "issues": ["issue1", "issue2"],
    "recommendations": ["recommendation1", "recommendation2"],
    "confidence": 0.0-1.0
}`))

// correctPromptTmpl asks for a corrected version of a document.
var correctPromptTmpl = template.Must(template.New("correct").Parse(`Correct the following text to comply with ADGM regulations.

Original Text:
{{.Text}}

Issues Found:
{{range .Issues}}- {{.}}
{{end}}
Provide the corrected text that:
1. Complies with all ADGM regulations
2. Uses proper legal language (binding terms)
3. References ADGM jurisdiction correctly
4. Includes all required elements

Return only the corrected text:`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
