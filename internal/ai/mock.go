package ai

import "context"

// MockAdapter permite tests sin llamar a un proveedor real.
type MockAdapter struct {
	ID       string
	Output   AnalysisOutput
	Err      error
	Calls    int
	LastText string
}

func (m *MockAdapter) Analyze(_ context.Context, text, _ string, _ map[string]interface{}) (AnalysisOutput, error) {
	m.Calls++
	m.LastText = text
	return m.Output, m.Err
}

func (m *MockAdapter) Identifier() string {
	if m.ID == "" {
		return "mock:model"
	}
	return m.ID
}
