package mock

import (
	"context"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// MockAdapter is a mock implementation of the GatewayAdapter interface for testing.
type MockAdapter struct {
	Name                   string
	Config                 protocol.Args
	RequestFunc            func(ctx context.Context, overrides protocol.Args) (string, error)
	HandleResponseDataFunc func(ctx context.Context, raw string) (protocol.ResponseData, error)

	Requests  []protocol.Args
	Responses []string
}

// NewMockAdapter creates a new MockAdapter.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{Name: name}
}

// Request records the merged arguments and calls RequestFunc if defined,
// otherwise returns a fixed payment form.
func (m *MockAdapter) Request(ctx context.Context, overrides protocol.Args) (string, error) {
	args := m.Config.Merge(overrides)
	m.Requests = append(m.Requests, args)
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, args)
	}
	return "<form>mock</form>", nil
}

// HandleResponseData calls HandleResponseDataFunc if defined, otherwise
// returns an approved record for 10.00 with the raw payload as order id.
func (m *MockAdapter) HandleResponseData(ctx context.Context, raw string) (protocol.ResponseData, error) {
	m.Responses = append(m.Responses, raw)
	if m.HandleResponseDataFunc != nil {
		return m.HandleResponseDataFunc(ctx, raw)
	}
	return protocol.ResponseSchemaV1.FromMap(map[string]string{
		protocol.FieldCode:         "0",
		protocol.FieldResponseCode: "00",
		protocol.FieldAmount:       "1000",
		protocol.FieldOrderID:      raw,
	}), nil
}

// GetName implements the GatewayAdapter interface.
func (m *MockAdapter) GetName() string {
	return m.Name
}
