// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

// Source is one official ADGM page or document.
type Source struct {
	Category string `yaml:"category" json:"category"`
	URL      string `yaml:"url" json:"url"`
}

// DefaultSources returns the ADGM registration, guidance, checklist,
// employment, data-protection and rulebook documents the knowledge base
// is built from.
func DefaultSources() []Source {
	return []Source{
		{"company_formation", "https://www.adgm.com/registration-authority/registration-and-incorporation"},
		{"company_formation", "https://assets.adgm.com/download/assets/adgm-ra-resolution-multiple-incorporate-shareholders-LTD-incorporation-v2.docx/186a12846c3911efa4e6c6223862cd87"},
		{"policy_guidance", "https://www.adgm.com/legal-framework/guidance-and-policy-statements"},
		{"policy_guidance", "https://www.adgm.com/setting-up"},
		{"checklists", "https://www.adgm.com/documents/registration-authority/registration-and-incorporation/checklist/branch-non-financial-services-20231228.pdf"},
		{"checklists", "https://www.adgm.com/documents/registration-authority/registration-and-incorporation/checklist/private-company-limited-by-guarantee-non-financial-services-20231228.pdf"},
		{"employment", "https://assets.adgm.com/download/assets/ADGM+Standard+Employment+Contract+Template+-+ER+2024+(Feb+2025).docx/ee14b252edbe11efa63b12b3a30e5e3a"},
		{"employment", "https://assets.adgm.com/download/assets/ADGM+Standard+Employment+Contract+-+ER+2019+-+Short+Version+(May+2024).docx/33b57a92ecfe11ef97a536cc36767ef8"},
		{"data_protection", "https://www.adgm.com/documents/office-of-data-protection/templates/adgm-dpr-2021-appropriate-policy-document.pdf"},
		{"compliance", "https://www.adgm.com/operating-in-adgm/obligations-of-adgm-registered-entities/annual-filings/annual-accounts"},
		{"compliance", "https://www.adgm.com/operating-in-adgm/post-registration-services/letters-and-permits"},
		{"regulatory", "https://en.adgm.thomsonreuters.com/rulebook/7-company-incorporation-package"},
		{"regulatory", "https://assets.adgm.com/download/assets/Templates_SHReso_AmendmentArticles-v1-20220107.docx/97120d7c5af911efae4b1e183375c0b2?forcedownload=1"},
	}
}
