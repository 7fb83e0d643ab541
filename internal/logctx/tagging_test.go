package logctx

import (
	"context"
	"reflect"
	"testing"
)

func TestTagging(t *testing.T) {
	base := context.Background()

	parent := AppendCtxTag(base, "Supervisor")
	child := AppendCtxTag(parent, "Tailer")
	sibling := AppendCtxTag(parent, "Uploader")

	tests := []struct {
		name   string
		ctx    context.Context
		expect []string
	}{
		{"empty context", base, []string{}},
		{"parent", parent, []string{"Supervisor"}},
		{"child", child, []string{"Supervisor", "Tailer"}},
		{"sibling does not see child tag", sibling, []string{"Supervisor", "Uploader"}},
		{"remove last", RemoveLastCtxTag(child), []string{"Supervisor"}},
		{"remove from empty", RemoveLastCtxTag(base), []string{}},
		{"overwrite", OverwriteCtxTag(child, []string{"CLI"}), []string{"CLI"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetTagList(tt.ctx)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}
