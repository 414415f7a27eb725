package agent

// RegisterAll wires the full tool surface into a registry.
func RegisterAll(r *Registry) {
	registerResumeTools(r)
	registerDocumentTools(r)
	registerJobTools(r)
	registerLetterTools(r)
}
