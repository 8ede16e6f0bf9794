package game_test

import (
	"log"
	"os"
	"testing"

	"github.com/Black-And-White-Club/tenpin-bot/integration_tests/testutils"
)

var testEnv *testutils.TestEnvironment

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	if !testutils.Enabled() {
		log.Printf("skipping game integration tests; set %s=1 to run them", testutils.IntegrationEnvVar)
		return 0
	}

	env, err := testutils.NewTestEnvironment()
	if err != nil {
		log.Printf("failed to set up test environment: %v", err)
		return 1
	}
	defer env.Cleanup()
	testEnv = env

	return m.Run()
}
