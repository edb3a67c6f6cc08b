package matchmakingintegrationtests

import (
	"log"
	"os"
	"testing"

	"github.com/Black-And-White-Club/lobby-bot/integration_tests/testutils"
)

func TestMain(m *testing.M) {
	log.Println("TestMain started in package matchmakingintegrationtests")
	exitCode := m.Run()
	testutils.Shutdown()
	os.Exit(exitCode)
}
