// Package recipe holds the normalized result of an external recipe
// extraction and the error taxonomy shared by every source adapter.
package recipe

// ExternalRecipe is a recipe extracted from a third-party page.
// Steps keep the order the source page declares.
type ExternalRecipe struct {
	Name        string               `json:"name"`
	Ingredients []string             `json:"ingredients"`
	Files       []string             `json:"files"`
	Steps       []ExternalRecipeStep `json:"steps"`
}

// ExternalRecipeStep is one step of an ExternalRecipe. Ingredients is empty
// when the source has no per-step ingredient lists.
type ExternalRecipeStep struct {
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Files       []string `json:"files"`
}

// New returns an ExternalRecipe with non-nil slices so JSON output
// always carries arrays.
func New(name string) *ExternalRecipe {
	return &ExternalRecipe{
		Name:        name,
		Ingredients: []string{},
		Files:       []string{},
		Steps:       []ExternalRecipeStep{},
	}
}

// NewStep returns a step with non-nil slices.
func NewStep(description string) ExternalRecipeStep {
	return ExternalRecipeStep{
		Description: description,
		Ingredients: []string{},
		Files:       []string{},
	}
}

// Validate reports a ParseError when required fields are missing.
// Adapters call it before returning so that a recipe without a name or
// without steps never reaches the caller.
func (r *ExternalRecipe) Validate(url string) error {
	if r == nil {
		return &ParseError{URL: url, Expected: "recipe data"}
	}
	if r.Name == "" {
		return &ParseError{URL: url, Expected: "recipe name"}
	}
	if len(r.Steps) == 0 {
		return &ParseError{URL: url, Expected: "at least one recipe step"}
	}
	return nil
}
