package main

import (
	"reflect"
	"testing"
)

const id = "0f8fad5b-d9cb-469f-a165-70867728950e"

func TestRewriteDirectItemLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"parrillas"},
			want: []string{"parrillas"},
		},
		{
			name: "direct item id first token",
			in:   []string{"parrillas", id},
			want: []string{"parrillas", "show", id},
		},
		{
			name: "direct item id after value flag",
			in:   []string{"parrillas", "--backend", "local", id},
			want: []string{"parrillas", "--backend", "local", "show", id},
		},
		{
			name: "direct item id after equals flag",
			in:   []string{"parrillas", "--as=u-ana", id},
			want: []string{"parrillas", "--as=u-ana", "show", id},
		},
		{
			name: "direct item id after bool flag",
			in:   []string{"parrillas", "--pretty", id},
			want: []string{"parrillas", "--pretty", "show", id},
		},
		{
			name: "direct item id after double dash",
			in:   []string{"parrillas", "--db", "./tmp.db", "--", id},
			want: []string{"parrillas", "--db", "./tmp.db", "--", "show", id},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"parrillas", "show", id},
			want: []string{"parrillas", "show", id},
		},
		{
			name: "short id not rewritten",
			in:   []string{"parrillas", "0f8fad5b"},
			want: []string{"parrillas", "0f8fad5b"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"parrillas", "wat"},
			want: []string{"parrillas", "wat"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectItemLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectItemLookupArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
