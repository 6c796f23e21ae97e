package vision

// Allowed vision model identifiers. The set is closed; requests naming
// anything else are rejected before any record is created.
const (
	ModelGPT4oMini = "gpt-4o-mini"
	ModelGPT4o     = "gpt-4o"
	ModelGPT41Mini = "gpt-4.1-mini"
	ModelGPT41     = "gpt-4.1"
	DefaultModel   = ModelGPT4oMini
)

// ModelChoice pairs a model identifier with its human-readable label.
type ModelChoice struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModelChoices is the versioned list served by the read-only models endpoint.
var ModelChoices = []ModelChoice{
	{Name: ModelGPT4oMini, Description: "GPT-4o Mini (Recommended)"},
	{Name: ModelGPT4o, Description: "GPT-4o"},
	{Name: ModelGPT41Mini, Description: "GPT-4.1 Mini"},
	{Name: ModelGPT41, Description: "GPT-4.1"},
}

// IsValidModel reports whether name is in the allowed model set.
func IsValidModel(name string) bool {
	for _, c := range ModelChoices {
		if c.Name == name {
			return true
		}
	}
	return false
}
