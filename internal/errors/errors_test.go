package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAggregateListsEveryField(t *testing.T) {
	err := Aggregate(CodeConfiguration, "配置校验失败", []Violation{
		{Field: "SEED_PHRASE", Reason: "required"},
		{Field: "BIRDEYE_API_KEY", Reason: "required"},
	})
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	for _, field := range []string{"SEED_PHRASE", "BIRDEYE_API_KEY"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("message %q does not name %s", err.Error(), field)
		}
	}
	coded, ok := From(err)
	if !ok || coded.Code() != CodeConfiguration {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := coded.Violations(); len(got) != 2 || got[0].Field != "BIRDEYE_API_KEY" {
		t.Fatalf("violations should be sorted by field: %+v", got)
	}
}

func TestAggregateWithoutViolations(t *testing.T) {
	if err := Aggregate(CodeConfiguration, "noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := Wrap(CodeUpstreamExecution, stdErrors.New("boom"), "agent failed")
	wrapped := fmt.Errorf("handler: %w", base)

	if !IsCode(wrapped, CodeUpstreamExecution) {
		t.Fatalf("expected upstream code in chain")
	}
	if IsCode(wrapped, CodeConfiguration) {
		t.Fatalf("unexpected configuration code")
	}
	if !ShouldAlert(wrapped) {
		t.Fatalf("upstream failures alert by default")
	}
	if CodeOf(stdErrors.New("plain")) != CodeUnknown {
		t.Fatalf("plain errors map to UNKNOWN")
	}
}
