package embedding

import (
	"context"
)

//go:generate mockery --name=Creator --dir=. --output=./mocks --filename=embedding_creator_mock.go --case=underscore --with-expecter

// Creator turns text into a vector. Backends are black boxes; credentials
// are bound at construction time.
type Creator interface {
	Generate(ctx context.Context, text, model string) (*Embedding, error)
}
