package ua

// RequiredModel declares a dependency of a model on another namespace's
// model, as carried in a file's <RequiredModel> header.
type RequiredModel struct {
	ModelURI        string
	PublicationDate string
	Version         string
}

// Model describes one parsed file's <Model> header.
type Model struct {
	ModelURI        string
	PublicationDate string
	Version         string
	RequiredModels  []RequiredModel
}
