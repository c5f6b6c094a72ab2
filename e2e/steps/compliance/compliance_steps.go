package compliance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetLastStatus() int
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers compliance run and audit step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &complianceSteps{tc: tc}

	ctx.Step(`^I trigger a compliance run and wait for the report$`, steps.triggerAndWait)
	ctx.Step(`^I trigger a compliance run in the background$`, steps.triggerAsync)
	ctx.Step(`^I request the compliance status$`, steps.requestStatus)
	ctx.Step(`^I request the latest (\d+) audit entries$`, steps.requestAudit)

	ctx.Step(`^the report field "([^"]*)" should be at least (\d+)$`, steps.fieldAtLeast)
	ctx.Step(`^the last run should have been triggered "([^"]*)"$`, steps.lastRunTrigger)
}

type complianceSteps struct {
	tc TestContext
}

func (s *complianceSteps) triggerAndWait(ctx context.Context) error {
	return s.tc.POST("/admin/compliance/runs?wait=true", nil)
}

func (s *complianceSteps) triggerAsync(ctx context.Context) error {
	return s.tc.POST("/admin/compliance/runs", nil)
}

func (s *complianceSteps) requestStatus(ctx context.Context) error {
	return s.tc.GET("/admin/compliance/status")
}

func (s *complianceSteps) requestAudit(ctx context.Context, limit int) error {
	return s.tc.GET("/admin/compliance/audit?limit=" + strconv.Itoa(limit))
}

func (s *complianceSteps) fieldAtLeast(ctx context.Context, field string, minimum int) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := value.(float64)
	if !ok {
		return fmt.Errorf("field %q is not a number: %v", field, value)
	}
	if int(n) < minimum {
		return fmt.Errorf("expected %s >= %d, got %d", field, minimum, int(n))
	}
	return nil
}

func (s *complianceSteps) lastRunTrigger(ctx context.Context, trigger string) error {
	value, err := s.tc.GetResponseField("last_run.trigger")
	if err != nil {
		return err
	}
	if value != trigger {
		return fmt.Errorf("expected last run trigger %q, got %v", trigger, value)
	}
	return nil
}
