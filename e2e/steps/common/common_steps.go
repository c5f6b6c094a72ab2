package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	UseAdminToken()
	UseToken(token string)
	ClearToken()
	GetLastStatus() int
	GetLastBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers background, request and assertion steps shared by
// every feature.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the vendorwatch server is running$`, steps.serverIsRunning)
	ctx.Step(`^I am authenticated as an admin operator$`, steps.authenticatedAsAdmin)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I use the bearer token "([^"]*)"$`, steps.useToken)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.bodyShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 200 {
		return fmt.Errorf("server unhealthy: status %d: %s", s.tc.GetLastStatus(), s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) authenticatedAsAdmin(ctx context.Context) error {
	s.tc.UseAdminToken()
	return nil
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearToken()
	return nil
}

func (s *commonSteps) useToken(ctx context.Context, token string) error {
	s.tc.UseToken(token)
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) bodyShouldContain(ctx context.Context, fragment string) error {
	if !containsBytes(s.tc.GetLastBody(), fragment) {
		return fmt.Errorf("response does not contain %q: %s", fragment, s.tc.GetLastBody())
	}
	return nil
}
