package recipe

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockGenerator struct {
	mock.Mock
	name string
}

func newMockGenerator(name string) *MockGenerator {
	return &MockGenerator{name: name}
}

func (m *MockGenerator) Name() string { return m.name }

func (m *MockGenerator) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	args := m.Called(ctx, prompt, media)
	return args.String(0), args.Error(1)
}
