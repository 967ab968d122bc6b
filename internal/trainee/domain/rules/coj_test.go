package rules

import (
	"testing"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

func TestCojSigned(t *testing.T) {
	outcome := CojSigned("tis-1")
	if outcome.Reference.Kind != domain.ReferenceProgrammeMembership || outcome.Reference.ID != "tis-1" {
		t.Errorf("unexpected reference: %+v", outcome.Reference)
	}
	if outcome.CancelType != domain.TypeProgrammeCreated {
		t.Errorf("expected to cancel PROGRAMME_CREATED, got %s", outcome.CancelType)
	}
}
