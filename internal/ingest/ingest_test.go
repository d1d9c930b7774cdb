package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/missedcall/internal/resilience"
	"github.com/sells-group/missedcall/pkg/telephony"
	"github.com/sells-group/missedcall/pkg/telephony/mocks"
)

func atOffset(offset int) interface{} {
	return mock.MatchedBy(func(q telephony.PageQuery) bool { return q.Offset == offset })
}

func newTestIngestor(client telephony.Client, opts ...Option) *Ingestor {
	i := New(client, append([]Option{WithLocation(istOffset)}, opts...)...)
	i.now = func() time.Time { return time.Date(2025, 3, 2, 3, 30, 0, 0, time.UTC) }
	return i
}

func call(id, customer, agent, start string) telephony.CallLog {
	return telephony.CallLog{ID: id, CustomerNumber: customer, AgentNumber: agent, StartTime: start}
}

func TestWindow(t *testing.T) {
	i := newTestIngestor(mocks.NewMockClient(t))

	start, end := i.Window(24)
	assert.Equal(t, "2025-03-01T09:00:00", start.Format(telephony.TimeLayout))
	assert.Equal(t, "2025-03-02T09:00:00", end.Format(telephony.TimeLayout))
}

func TestFetchWindow_Paginates(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FetchPage", mock.Anything, mock.MatchedBy(func(q telephony.PageQuery) bool {
		return q.Offset == 0 && q.Limit == 2 &&
			q.Start.Format(telephony.TimeLayout) == "2025-03-02T08:00:00" &&
			q.End.Format(telephony.TimeLayout) == "2025-03-02T09:00:00"
	})).Return(&telephony.Page{TotalCount: 5, Calls: []telephony.CallLog{
		call("a", "+911", "missed", "2025-03-02 08:01:00"),
		call("b", "+912", "missed", "2025-03-02 08:02:00"),
	}}, nil).Once()
	client.On("FetchPage", mock.Anything, atOffset(2)).Return(&telephony.Page{TotalCount: 5, Calls: []telephony.CallLog{
		call("c", "+913", "missed", "2025-03-02 08:03:00"),
		call("d", "+914", "missed", "2025-03-02 08:04:00"),
	}}, nil).Once()
	client.On("FetchPage", mock.Anything, atOffset(4)).Return(&telephony.Page{TotalCount: 5, Calls: []telephony.CallLog{
		call("e", "+915", "missed", "bogus"),
	}}, nil).Once()

	records, err := newTestIngestor(client, WithPageSize(2)).FetchWindow(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "+911", records[0].CustomerNumber)
	assert.Equal(t, "+915", records[4].CustomerNumber)
	assert.True(t, records[4].StartTime.IsZero())
	assert.Equal(t, "bogus", records[4].RawStartTime)
}

func TestFetchWindow_FailedPageIsEmpty(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FetchPage", mock.Anything, atOffset(0)).Return(&telephony.Page{TotalCount: 6, Calls: []telephony.CallLog{
		call("a", "+911", "missed", "2025-03-02 08:01:00"),
		call("b", "+912", "missed", "2025-03-02 08:02:00"),
	}}, nil).Once()
	client.On("FetchPage", mock.Anything, atOffset(2)).
		Return(nil, resilience.NewProviderError("telephony", "fetch page offset=2", 503, nil)).Once()
	client.On("FetchPage", mock.Anything, atOffset(4)).Return(&telephony.Page{TotalCount: 6, Calls: []telephony.CallLog{
		call("e", "+915", "missed", "2025-03-02 08:05:00"),
	}}, nil).Once()

	records, err := newTestIngestor(client, WithPageSize(2), WithMaxConcurrentPages(1)).FetchWindow(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "+915", records[2].CustomerNumber)
}

func TestFetchWindow_FirstPageFailure(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FetchPage", mock.Anything, atOffset(0)).
		Return(nil, resilience.NewProviderError("telephony", "fetch page offset=0", 500, nil)).Once()

	_, err := newTestIngestor(client).FetchWindow(context.Background(), 24)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: fetch first page")
}

func TestFetchWindow_ZeroCount(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FetchPage", mock.Anything, atOffset(0)).Return(&telephony.Page{}, nil).Once()

	candidates, err := newTestIngestor(client).Candidates(context.Background(), 24)

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFetchWindow_InvalidHours(t *testing.T) {
	_, err := newTestIngestor(mocks.NewMockClient(t)).FetchWindow(context.Background(), 0)
	require.Error(t, err)
}

func TestCandidates(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("FetchPage", mock.Anything, atOffset(0)).Return(&telephony.Page{TotalCount: 4, Calls: []telephony.CallLog{
		call("a", "+919811111111", "missed", "2025-03-02 08:10:00"),
		call("b", "+919811111111", "+918000000001", "2025-03-02 08:20:00"),
		call("c", "+919822222222", "+918000000001", "2025-03-02 08:05:00"),
		call("d", "+919822222222", "", "2025-03-02 08:15:00"),
	}}, nil).Once()

	candidates, err := newTestIngestor(client).Candidates(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "919822222222", candidates[0].Phone)
	assert.Equal(t, "2025-03-02 08:15:00", candidates[0].RawEventTime)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, pages(0, 100))
	assert.Equal(t, 1, pages(1, 100))
	assert.Equal(t, 1, pages(100, 100))
	assert.Equal(t, 3, pages(201, 100))
}
