package llm

import "context"

// SplitProvider routes completions and embeddings to different
// providers. Needed when the chat provider has no embeddings endpoint
// (anthropic) or when embeddings should stay on a cheaper backend.
type SplitProvider struct {
	completions Provider
	embeddings  Provider
}

// Split combines a completion provider with an embedding provider.
func Split(completions, embeddings Provider) *SplitProvider {
	return &SplitProvider{completions: completions, embeddings: embeddings}
}

func (s *SplitProvider) Name() string {
	return s.completions.Name() + "+" + s.embeddings.Name()
}

func (s *SplitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	return s.completions.Complete(ctx, prompt, opts)
}

func (s *SplitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embeddings.Embed(ctx, texts)
}
