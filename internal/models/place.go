package models

// Place is one nearby-search suggestion.
type Place struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}
