package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -5, want: DefaultLimit},
		{in: 30, want: 30},
		{in: MaxLimit + 50, want: MaxLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, Limit: 10}
	if got := p.Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	zero := Params{}
	if got := zero.Offset(); got != 0 {
		t.Fatalf("expected offset 0 for defaults, got %d", got)
	}
}

func TestMetaFor(t *testing.T) {
	meta := MetaFor(Params{Page: 2, Limit: 10}, 35)
	if meta.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", meta.TotalPages)
	}
	if meta.Page != 2 || meta.Limit != 10 || meta.Total != 35 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	empty := MetaFor(Params{}, 0)
	if empty.TotalPages != 1 {
		t.Fatalf("empty result should still report one page, got %d", empty.TotalPages)
	}
}
