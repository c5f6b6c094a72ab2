package e2e

import (
	"github.com/cucumber/godog"

	"vendorwatch/e2e/steps/common"
	"vendorwatch/e2e/steps/compliance"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	compliance.RegisterSteps(ctx, tc)
}
