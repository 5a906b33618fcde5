package api

import (
	"context"
	"errors"
	"testing"

	"lector/internal/queue"
)

type queueActionStub struct {
	items map[int64]*QueueItem
}

func (s *queueActionStub) Describe(_ context.Context, id int64) (*QueueItem, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, nil
}

func (s *queueActionStub) Retry(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func (s *queueActionStub) Stop(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func TestStopItemsByIDRecordsPriorStatus(t *testing.T) {
	stub := &queueActionStub{
		items: map[int64]*QueueItem{
			1: {ID: 1, Status: string(queue.StatusSynthesizing)},
			2: {ID: 2, Status: string(queue.StatusCompleted)},
			3: {ID: 3, Status: string(queue.StatusFailed)},
		},
	}

	result, err := StopItemsByID(context.Background(), stub, []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("StopItemsByID: %v", err)
	}
	if len(result.Items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(result.Items))
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}

	if result.Items[0].Outcome != StopItemUpdated || result.Items[0].PriorStatus != string(queue.StatusSynthesizing) {
		t.Fatalf("item 1 = %+v, want stopped from synthesizing", result.Items[0])
	}
	if result.Items[1].Outcome != StopItemAlreadyCompleted {
		t.Fatalf("item 2 outcome = %s, want %s", result.Items[1].Outcome, StopItemAlreadyCompleted)
	}
	if result.Items[2].Outcome != StopItemAlreadyFailed {
		t.Fatalf("item 3 outcome = %s, want %s", result.Items[2].Outcome, StopItemAlreadyFailed)
	}
	if result.Items[3].Outcome != StopItemNotFound {
		t.Fatalf("item 4 outcome = %s, want %s", result.Items[3].Outcome, StopItemNotFound)
	}
}

func TestRetryFailedItemsByIDValidatesStatus(t *testing.T) {
	stub := &queueActionStub{
		items: map[int64]*QueueItem{
			1: {ID: 1, Status: string(queue.StatusFailed)},
			2: {ID: 2, Status: string(queue.StatusReview)},
			3: {ID: 3, Status: string(queue.StatusCompleted)},
		},
	}

	result, err := RetryFailedItemsByID(context.Background(), stub, []int64{1, 2, 3, 9})
	if err != nil {
		t.Fatalf("RetryFailedItemsByID: %v", err)
	}
	if result.UpdatedCount != 2 {
		t.Fatalf("UpdatedCount = %d, want 2", result.UpdatedCount)
	}
	if result.Items[0].Outcome != RetryItemUpdated {
		t.Fatalf("failed item outcome = %s, want %s", result.Items[0].Outcome, RetryItemUpdated)
	}
	if result.Items[1].Outcome != RetryItemUpdated {
		t.Fatalf("review item outcome = %s, want %s", result.Items[1].Outcome, RetryItemUpdated)
	}
	if result.Items[2].Outcome != RetryItemNotRetryable {
		t.Fatalf("completed item outcome = %s, want %s", result.Items[2].Outcome, RetryItemNotRetryable)
	}
	if result.Items[3].Outcome != RetryItemNotFound {
		t.Fatalf("missing item outcome = %s, want %s", result.Items[3].Outcome, RetryItemNotFound)
	}
}
