package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type fakeRestocker struct {
	err   error
	calls []int64
}

func (f *fakeRestocker) Restock(_ context.Context, id int64, qty int) (entity.Product, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return entity.Product{}, f.err
	}
	return entity.Product{ID: id, InventoryCount: qty}, nil
}

func TestRestockHandler(t *testing.T) {
	good := entity.NewRef(entity.KindProduct, 5).String()
	tests := []struct {
		name      string
		ev        usecase.RestockMsg
		err       error
		wantErr   bool
		wantCalls int
	}{
		{"applies", usecase.RestockMsg{ProductID: good, Quantity: 3}, nil, false, 1},
		{"malformed ref skipped", usecase.RestockMsg{ProductID: "nope", Quantity: 3}, nil, false, 0},
		{"unknown product skipped", usecase.RestockMsg{ProductID: good, Quantity: 3}, entity.NotFound(entity.KindProduct, good), false, 1},
		{"bad quantity skipped", usecase.RestockMsg{ProductID: good}, entity.InvalidArgument("x"), false, 1},
		{"db failure retried", usecase.RestockMsg{ProductID: good, Quantity: 3}, errors.New("db down"), true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRestocker{err: tt.err}
			err := NewRestockHandler(r).Handle(context.Background(), tt.ev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(r.calls) != tt.wantCalls {
				t.Fatalf("calls = %v, want %d", r.calls, tt.wantCalls)
			}
		})
	}
}

func TestProcessMarksPoison(t *testing.T) {
	h := &cgHandler[usecase.RestockMsg]{
		handle: func(context.Context, usecase.RestockMsg) error { return errors.New("transient") },
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if !h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}) {
		t.Error("undecodable message should be marked")
	}
	if h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"productId":"x","quantity":1}`)}) {
		t.Error("failed message should not be marked")
	}
}
