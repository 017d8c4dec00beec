package types

// ModelRef selects the provider/model pair a send_prompt call targets.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}
