package models

// Topic is a read-only unit of study content
type Topic struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Rule       string   `json:"rule"`
	Elements   []string `json:"elements"`
	Mnemonic   string   `json:"mnemonic,omitempty"`
	Difficulty int      `json:"difficulty"`
	// Filled in when the content tree is flattened
	Subject  string   `json:"subject,omitempty"`
	Category string   `json:"category,omitempty"`
	Path     []string `json:"path,omitempty"`
}
