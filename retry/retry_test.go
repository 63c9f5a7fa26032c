package retry

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"food-console/errclass"
	"food-console/remote"
)

var errColumn = &remote.Error{Code: "42703", Message: `column "default_delivery_note" of relation "profiles" does not exist`}

func TestStripUnknownColumnRetriesOnce(t *testing.T) {
	var sent []remote.Row
	attempt := func(_ context.Context, row remote.Row) (int64, error) {
		sent = append(sent, row)
		if _, ok := row["default_delivery_note"]; ok {
			return 0, errColumn
		}
		return 1, nil
	}
	payload := remote.Row{"name": "x", "default_delivery_note": "y"}
	out, err := Once(context.Background(), payload, attempt, StripUnknownColumn())
	if err != nil {
		t.Fatalf("Once: %v", err)
	}
	if !out.Retried || out.Value != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(sent) != 2 {
		t.Fatalf("attempts = %d, want 2", len(sent))
	}
	if !reflect.DeepEqual(sent[1], remote.Row{"name": "x"}) {
		t.Errorf("retried payload = %v", sent[1])
	}
	if _, ok := payload["default_delivery_note"]; !ok {
		t.Error("caller payload was mutated")
	}
	if got := Dropped(payload, out.Payload); !reflect.DeepEqual(got, []string{"default_delivery_note"}) {
		t.Errorf("Dropped = %v", got)
	}
}

func TestStripUnknownColumnSecondFailureSurfaces(t *testing.T) {
	calls := 0
	attempt := func(_ context.Context, row remote.Row) (int64, error) {
		calls++
		return 0, errColumn
	}
	_, err := Once(context.Background(), remote.Row{"name": "x", "default_delivery_note": "y"}, attempt, StripUnknownColumn())
	if !errors.Is(err, errColumn) {
		t.Fatalf("err = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestStripUnknownColumnIgnoresAbsentColumn(t *testing.T) {
	calls := 0
	attempt := func(_ context.Context, row remote.Row) (int64, error) {
		calls++
		return 0, errColumn
	}
	out, err := Once(context.Background(), remote.Row{"name": "x"}, attempt, StripUnknownColumn())
	if err == nil || out.Retried || calls != 1 {
		t.Fatalf("err=%v retried=%v calls=%d", err, out.Retried, calls)
	}
}

func TestStripUnknownColumnUsesOptionalWhenUnnamed(t *testing.T) {
	tr := StripUnknownColumn("default_delivery_note")
	c := errclass.Classification{Kind: errclass.UndefinedColumn}
	next, ok := tr(context.Background(), remote.Row{"name": "x", "default_delivery_note": "y"}, c)
	if !ok || len(next) != 1 {
		t.Fatalf("next=%v ok=%v", next, ok)
	}
}

func TestEnrichOnDenied(t *testing.T) {
	denied := remote.DenyRLS("chat_messages")
	tests := []struct {
		name      string
		lookup    Lookup
		wantCalls int
		wantErr   error
	}{
		{
			name: "lookup resolves",
			lookup: func(context.Context, remote.Row) (any, bool, error) {
				return "b1", true, nil
			},
			wantCalls: 2,
		},
		{
			name: "no parent row",
			lookup: func(context.Context, remote.Row) (any, bool, error) {
				return nil, false, nil
			},
			wantCalls: 1,
			wantErr:   denied,
		},
		{
			name: "lookup fails",
			lookup: func(context.Context, remote.Row) (any, bool, error) {
				return nil, false, errors.New("boom")
			},
			wantCalls: 1,
			wantErr:   denied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			lookups := 0
			lookup := func(ctx context.Context, row remote.Row) (any, bool, error) {
				lookups++
				return tt.lookup(ctx, row)
			}
			attempt := func(_ context.Context, row remote.Row) (remote.Row, error) {
				calls++
				if row["branch_id"] == nil {
					return nil, denied
				}
				return row, nil
			}
			out, err := Once(context.Background(), remote.Row{"chat_id": "c1", "message": "hi"}, attempt, EnrichOnDenied("branch_id", lookup))
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("writes = %d, want %d", calls, tt.wantCalls)
			}
			if lookups != 1 {
				t.Errorf("lookups = %d, want 1", lookups)
			}
			if tt.wantErr == nil && out.Value["branch_id"] != "b1" {
				t.Errorf("branch_id not merged: %v", out.Value)
			}
		})
	}
}

func TestEnrichOnDeniedIgnoresOtherKinds(t *testing.T) {
	lookups := 0
	tr := EnrichOnDenied("branch_id", func(context.Context, remote.Row) (any, bool, error) {
		lookups++
		return "b1", true, nil
	})
	if _, ok := tr(context.Background(), remote.Row{}, errclass.Classification{Kind: errclass.Other}); ok {
		t.Error("expected no retry")
	}
	if lookups != 0 {
		t.Errorf("lookups = %d", lookups)
	}
}
