package main

import (
	"context"
	"time"

	"github.com/sells-group/missedcall/internal/model"
	"github.com/sells-group/missedcall/internal/resilience"
	"github.com/sells-group/missedcall/internal/stream"
)

var ist = time.FixedZone("IST", 19800)

type stubTokens struct{ fail bool }

func (s stubTokens) Acquire(context.Context) (string, error) {
	if s.fail {
		return "", resilience.NewAuthError("token exchange rejected", nil)
	}
	return "tok", nil
}

type stubCandidates struct {
	candidates []model.Candidate
	err        error
	gotHours   *int
}

func (s stubCandidates) Candidates(_ context.Context, hoursBack int) ([]model.Candidate, error) {
	if s.gotHours != nil {
		*s.gotHours = hoursBack
	}
	return s.candidates, s.err
}

func (s stubCandidates) Location() *time.Location { return ist }

type stubClassifier map[string]model.Outcome

func (s stubClassifier) Classify(_ context.Context, phones []string) map[string]model.Outcome {
	out := make(map[string]model.Outcome, len(phones))
	for _, p := range phones {
		out[p] = s[p]
	}
	return out
}

func candidateAt(phone string, minute int) model.Candidate {
	return model.Candidate{Phone: phone, EventTime: time.Date(2025, 3, 1, 10, minute, 0, 0, ist)}
}

// stubFactory returns a pipelineFactory over fixed stubs, recording the
// requested window in gotHours when set.
func stubFactory(tokens stubTokens, cands stubCandidates, cls stubClassifier) pipelineFactory {
	return func(hoursBack int) *stream.Pipeline {
		return stream.New(stream.Deps{
			Tokens:     tokens,
			Candidates: cands,
			Classifier: cls,
		}, stream.Config{SliceSize: 2, HoursBack: hoursBack})
	}
}
