package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"CoinPull/internal/domain/models"
)

func samples(pairs ...[2]string) []RawSample {
	out := make([]RawSample, 0, len(pairs))
	for _, p := range pairs {
		var ms int64
		if err := json.Unmarshal([]byte(p[0]), &ms); err != nil {
			panic(err)
		}
		out = append(out, RawSample{TimestampMillis: ms, Price: json.Number(p[1])})
	}
	return out
}

func TestSeriesDropsAndSorts(t *testing.T) {
	got, ferr := Series(samples(
		[2]string{"1000", "100"},
		[2]string{"2000", "0"},
		[2]string{"3000", "105"},
		[2]string{"1500", "102"},
	))
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}

	wantMs := []int64{1000, 1500, 3000}
	wantPx := []string{"100", "102", "105"}
	if got.Len() != len(wantMs) {
		t.Fatalf("len = %d, want %d", got.Len(), len(wantMs))
	}
	for i := range wantMs {
		p := got.At(i)
		if p.Timestamp.UnixMilli() != wantMs[i] {
			t.Errorf("point %d ts = %d, want %d", i, p.Timestamp.UnixMilli(), wantMs[i])
		}
		if p.Price.String() != wantPx[i] {
			t.Errorf("point %d price = %s, want %s", i, p.Price, wantPx[i])
		}
	}
}

func TestSeriesFiltersInvalidPrices(t *testing.T) {
	tests := []struct {
		name  string
		price string
		keep  bool
	}{
		{"positive", "1.25", true},
		{"tiny", "0.00000001", true},
		{"exponent", "1e3", true},
		{"zero", "0", false},
		{"negative", "-3.5", false},
		{"missing", "", false},
		{"null", "null", false},
		{"non numeric", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []RawSample{
				{TimestampMillis: 1, Price: json.Number("10")},
				{TimestampMillis: 2, Price: json.Number(tt.price)},
			}
			got, ferr := Series(raw)
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			want := 1
			if tt.keep {
				want = 2
			}
			if got.Len() != want {
				t.Fatalf("len = %d, want %d", got.Len(), want)
			}
		})
	}
}

func TestSeriesAllNonPositiveIsEmpty(t *testing.T) {
	_, ferr := Series(samples(
		[2]string{"1000", "0"},
		[2]string{"2000", "-1"},
		[2]string{"3000", "0.0"},
	))
	if ferr == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(ferr, models.ErrEmpty) {
		t.Fatalf("kind = %s, want %s", ferr.Kind, models.KindEmpty)
	}
}

func TestSeriesNilInputIsEmpty(t *testing.T) {
	if _, ferr := Series(nil); ferr == nil || ferr.Kind != models.KindEmpty {
		t.Fatalf("expected empty error, got %v", ferr)
	}
}

func TestSeriesStableOnTies(t *testing.T) {
	got, ferr := Series(samples(
		[2]string{"2000", "1"},
		[2]string{"1000", "7"},
		[2]string{"1000", "8"},
		[2]string{"1000", "9"},
	))
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	want := []string{"7", "8", "9", "1"}
	for i, w := range want {
		if got.At(i).Price.String() != w {
			t.Errorf("point %d price = %s, want %s", i, got.At(i).Price, w)
		}
	}
}

func TestSeriesOrderedAndPositive(t *testing.T) {
	raw := make([]RawSample, 0, 200)
	for i := 0; i < 200; i++ {
		ts := int64((i * 7919) % 1000)
		price := json.Number("5")
		if i%5 == 0 {
			price = json.Number("-2")
		}
		raw = append(raw, RawSample{TimestampMillis: ts, Price: price})
	}

	got, ferr := Series(raw)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}
	for i := 0; i < got.Len(); i++ {
		if got.At(i).Price.Sign() <= 0 {
			t.Fatalf("non-positive price at %d", i)
		}
		if i > 0 && got.At(i).Timestamp.Before(got.At(i-1).Timestamp) {
			t.Fatalf("out of order at %d", i)
		}
	}
}
